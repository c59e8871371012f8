// Command coinwatch manages a crypto watchlist and price alerts that live
// locally until login and on the API afterwards.
package main

import "github.com/mesh-intelligence/coinwatch/internal/cli"

func main() {
	cli.Execute()
}
