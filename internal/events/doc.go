// Package events provides types and interfaces for task lifecycle notifications.
//
// Services and the executor emit TaskEvents without knowing which handlers will
// process them. Handlers range from in-process recorders to the Kafka publisher
// in internal/platform/kafka.
//
// The primary components are:
//   - TaskEvent: a single lifecycle transition of a task
//   - EventHandler: interface for components that can handle events
//   - EventEmitter: interface for components that can emit events
package events
