package main

import "github.com/dealdesk/dealdesk/internal/cli/dealdeskctl"

func main() {
	dealdeskctl.Execute()
}
