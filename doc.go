/*
Package raptorq implements the algorithmic core of RaptorQ (RFC 6330), a
systematic fountain code: an object is partitioned into source blocks and
encoded into an effectively unlimited stream of equal-sized symbols such
that any sufficiently large subset of received symbols (source or repair)
reconstructs the object with overwhelming probability.

The package is organized the way the algorithm itself is, splitting
"codec" (precode construction + LT composition) from "decoder"
(accumulated equations + Gaussian elimination), built around RFC
6330's GF(256) HDPC rows, full LDPC/LT constraint construction, and
inactivation decoding:

  - Partitioner: splits an object into source blocks and sub-blocks
    (partition.go).
  - Interleaver: maps between byte offsets in the source object and
    (SBN, ESI, offset) symbol coordinates (interleave.go).
  - Parameter tables: K', S, H, W, J(K') indexed by padded block size
    (params.go).
  - Precode solver: builds and solves the GF(2)/GF(256) constraint
    system that produces the intermediate symbol vector (precode.go,
    solver.go).
  - LT generator: the deterministic tuple-driven XOR that derives an
    encoded symbol from the intermediate vector (lt.go).
  - Encoder / Decoder facades and the concurrency coordinator
    (encoder.go, decoder.go, coordinator.go).

Out of scope: CLI, packet framing, and wire transport. Source data is
treated as an opaque byte-addressable region; encoded symbols are opaque
equal-length byte slices tagged by (SBN, ESI).
*/
package raptorq
