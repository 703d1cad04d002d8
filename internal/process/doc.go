// Package process contains the per-type job handlers the workflow manager
// dispatches to. Each handler marshals job parameters, shells out to
// ffmpeg/ffprobe, and reports a JSON result payload plus an optional output
// file. Handler failures surface as errors for the manager to record; they
// never reach the HTTP layer.
package process
