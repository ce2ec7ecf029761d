// Package capture records clips from a camera and microphone.
//
// A Session acquires a MediaStream from Devices, runs a Compositor that
// redraws the latest camera frame plus a timestamp overlay onto a fixed-size
// Surface at a steady rate, and while recording feeds the composited frames
// and the microphone audio into a media.Muxer. Ending a recording finalizes
// the muxer and persists the bytes as a new pending clip.
//
// Periodic work goes through a Scheduler so tests can drive ticks by hand
// with ManualScheduler.
package capture
