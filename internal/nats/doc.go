// Package nats bridges the HAL's event bus onto NATS subjects so
// out-of-process consumers can follow capture lifecycles and device
// hotplug without linking against the HAL.
//
// The bridge degrades gracefully: when the connection to the NATS server
// is lost it keeps reconnecting in the background and drops events in the
// meantime. A server that is unreachable at start makes Start fail.
// The HAL itself never blocks on the messaging layer.
//
// Subjects:
//
//	camhal.cameras.<id>.shutter   one message per shutter notification
//	camhal.cameras.<id>.result    one message per completed request
//	camhal.cameras.<id>.error     one message per ERROR_REQUEST notify
//	camhal.devices.added          device hotplug arrivals
//	camhal.devices.removed        device hotplug removals
package nats
