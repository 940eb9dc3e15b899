// Package notice persists the payload read by the desktop error window.
//
// The FileRepository writes and reads the payload as JSON on disk; the window
// itself is a separate process that only consumes the file.
package notice
