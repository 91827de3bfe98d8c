// Package runlog provides the run-scoped leveled logger.
//
// Every entry is written twice: to the interactive console, styled per level
// when the console is a terminal, and as one JSON line to the run's
// append-only log file. The file lives under a configurable directory, is
// named after the run ID and is only created when the first entry is emitted.
package runlog
