// Package chdman wraps the MAME chdman CLI used to compress disc images into
// CHD files and to verify existing CHDs.
//
// Command execution goes through the Executor interface so tests can replay
// captured output without the real binary. Progress lines such as
// "Compressing, 45.2% complete... (ratio=40.5%)" are parsed into
// ProgressUpdate values.
package chdman
