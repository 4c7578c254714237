// Command catmux multiplexes several radios' CAT control onto one
// shared amplifier; see internal/cmd for the cobra command tree.
package main

import "github.com/ftl/catmux/internal/cmd"

func main() {
	cmd.Execute()
}
