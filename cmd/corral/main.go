// Corral - AWS resource inventory and safe cleanup.
// Scan. Validate. Act.
package main

func main() {
	Execute()
}
