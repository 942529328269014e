// Command phishsim runs the phishing simulation worker or the management API.
//
//	phishsim simulation   # worker, default :5001
//	phishsim management   # management API, default :5000
package main

import (
	"os"

	"github.com/tbourn/go-phishing-sim/internal/app"
)

func main() {
	os.Exit(app.Execute())
}
