// Package proc provides the OS-facing adapters: the Win32 window locator and
// process-memory handle (Windows builds), and an in-memory Image that backs
// tests and replay on every platform.
package proc
