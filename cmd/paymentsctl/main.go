// Command paymentsctl is the operator tool for the payments service: schema
// migrations and manual reconciliation of payments the webhook path could not
// settle on its own.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
