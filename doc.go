/*
go-depthai-lite provides a host side Go interface for running a two stage
neural network cascade on a DepthAI style depth camera.  The first stage
detects faces on the device, the best face is cropped on the host and sent
back to the device for emotion classification, and the result is optionally
fused with stereo depth, system information and IMU readings.

The device itself is abstracted as a set of named output and input queues
(see Device), so the same fusion code runs against real hardware bindings,
the host emulation in the hostdevice package, or in-memory queues in tests.

See the faceemotion package for the polling call and cmd/faceemotion for
example usage.
*/
package depthai
