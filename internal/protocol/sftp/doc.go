// Package sftp implements the wire format of the SSH File Transfer Protocol,
// version 3 (draft-ietf-secsh-filexfer-02).
//
// Packets are framed as [length:uint32][type:byte][payload], all integers
// big-endian and all strings uint32 length-prefixed. Every request except
// INIT starts its payload with a uint32 request id that the matching reply
// echoes.
//
// The package only translates between bytes and typed values. Session state,
// handles and filesystem access live in internal/adapter/sftp.
package sftp
