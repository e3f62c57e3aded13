// Command casetrail is the CaseTrail command line interface.
package main

import (
	"github.com/arclight-labs/casetrail/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
