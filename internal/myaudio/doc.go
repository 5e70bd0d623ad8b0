// Package myaudio loads recordings into normalized float32 samples and encodes
// sample buffers back into PCM WAV containers.
//
// Recordings made with time-expansion hardware are stored at a rate slower than
// the real-world rate. Loading multiplies the stored rate by the expansion factor
// so every sample rate returned by this package is the true acquisition rate.
package myaudio
