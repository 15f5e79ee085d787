// Command auditctl runs the report pipeline offline: render a saved webhook
// payload, inspect a narrative, call the analysis webhook or manage jobs.
package main

func main() {
	Execute()
}
