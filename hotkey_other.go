//go:build !windows

package main

// registerHotkey is a no-op off Windows; the global Ctrl+O toggle needs the
// Win32 keyboard hook.
func (a *App) registerHotkey() {}
