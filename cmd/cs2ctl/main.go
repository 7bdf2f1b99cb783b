// cs2ctl administers Counter-Strike 2 dedicated servers over the Source
// RCON protocol: one-shot command execution, an interactive console, and
// a managed server list with passwords in the OS keychain.
package main

func main() {
	Execute()
}
