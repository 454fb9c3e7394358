// Package cli is the terminal front-end of attendkeeper.
//
// It stands in for the classroom screen: a REPL reads commands from stdin,
// "scan" switches to reading one badge payload per line (the way a
// keyboard-wedge scanner types them), and the remaining commands list,
// report, export, clear and sync attendance. A background watcher probes
// the remote store and starts an automatic sync when connectivity returns.
//
// When stdin is not a terminal the prompts are suppressed, so a scanner
// pipe or a scripted session produces only the notices.
//
// The REPL is started via App.Run(ctx), which blocks until the user quits
// or the input ends.
package cli
