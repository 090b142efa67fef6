// ./main.go
package main

import (
	"github.com/craigjson/pindlebot-v2/cmd"
)

func main() {
	cmd.Execute()
}
