// Command scentflow answers perfume questions from the terminal or over HTTP.
package main

func main() {
	Execute()
}
