// Command dblineage shows which tables of a target database are fed by
// selected tables of a source database.
package main

import "os"

func main() {
	os.Exit(Execute())
}
