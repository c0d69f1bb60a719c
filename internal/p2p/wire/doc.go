/*
Package wire implements the binary encoding of peer records exchanged when two
nodes connect.

Every value is RLP encoded: a byte string or a list of values, each preceded
by its length, so that records nest without an external schema. A peer record
is a four element list

	[address, port, identifier, capabilities]

where address holds the 4 or 16 raw IP bytes, port is a minimal big-endian
integer, identifier is UTF-8 (possibly empty) and capabilities is a flat list
of alternating name and version values:

	[name_0, version_0, name_1, version_1, ...]

The number of capabilities is implied by the list length, which therefore must
be even.
*/
package wire
