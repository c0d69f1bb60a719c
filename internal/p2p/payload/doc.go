/*
Package payload routes application messages received from peers to the
handler registered for their payload type.

Every payload type has exactly one handler. The set of handlers is checked
when the Dispatcher is built: a missing or duplicate handler is a
configuration error. At runtime a message whose type has no handler is
dropped with an UnroutableTypeError; it never ends the peer connection.

Handlers run synchronously, one message per peer at a time. Long running
work, such as applying a full chain during catch-up, belongs to the
collaborator a handler calls into.
*/
package payload
