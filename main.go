// A local media library: it scans a media directory into an SQLite catalog
// and answers browse, search and lookup queries about it.
//
// This file is only here to make installing with go get easier. The source is
// stashed in the src directory instead of dumping it in the project root.
package main

import (
	"github.com/ironsmile/localmedia/src"
)

func main() {
	src.Main()
}
