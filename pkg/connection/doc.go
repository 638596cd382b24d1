// Package connection supervises the long-lived link to the device
// controller.
//
// A Supervisor dials the controller, waits for the session to end and dials
// again with exponential backoff until its context is cancelled:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s
//  3. Maximum delay: 30 seconds
//  4. Reset to the initial delay after a successful dial
//
// Each delay gets a random jitter of up to 20% so that several exposers
// restarting together do not hit the controller in lockstep.
package connection
