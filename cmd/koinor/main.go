// Command koinor imports Koinor billing exports from the command line.
package main

import "github.com/notaria/backoffice/internal/interfaces/cli"

func main() {
	cli.Main()
}
