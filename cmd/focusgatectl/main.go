// focusgatectl inspects focusgate hosts: foreground probe, doctor, config
// and journal.
package main

import "focusgate/internal/cli"

func main() {
	cli.Execute()
}
