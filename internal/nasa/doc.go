// Package nasa implements the wire format of Samsung's "NASA" HVAC
// field-bus protocol: addresses, the bit-packed command header, the
// variable-shape MessageSet records, CRC-16/CCITT-FALSE, and the decoded
// Packet value together with the invariants every decoded packet must
// satisfy.
//
// Sub-packages build on these primitives: reassembler recovers framed
// byte ranges from an arbitrary byte stream, decoder turns one candidate
// frame into a Packet or a typed error, analyser groups decoded packets
// by structural signature, and session fans decoded packets out to live
// subscribers and sinks.
package nasa
