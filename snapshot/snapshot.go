// Package snapshot implements the exact binary wire format a sealed CPG
// is persisted as (component I): a fixed magic and schema version, the
// owning epoch's identity and hash in the header, a length-prefixed
// node/edge/string-table body, and a trailing SHA-256 digest of
// everything that precedes it. There is no schema migration: a snapshot
// written by a different schema version, or whose trailer does not
// match, is rejected outright rather than partially read.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"vcrkernel/canon"
	"vcrkernel/cpg"
	"vcrkernel/epoch"
	"vcrkernel/kernel"
)

// MagicSignature is the 4-byte ASCII signature every snapshot starts
// with; it is followed by 4 reserved zero bytes, making the full magic
// field 8 bytes wide.
var MagicSignature = [4]byte{'V', 'C', 'R', '1'}

// magicSize is the width of the full magic field: signature + reserved.
const magicSize = 8

// SchemaVersion is the only wire schema this package knows how to read
// or write. There is deliberately no migration path: bumping this value
// is a breaking change, and readers must reject anything else.
const SchemaVersion uint32 = 1

// trailerSize is the width of the SHA-256 digest canon.Hash always is.
const trailerSize = 32

// noParent is the sentinel value for a node record's parent field when
// the node has no parent (the CPG's root nodes, one per file).
const noParent uint64 = 0xFFFFFFFFFFFFFFFF

// Encode serializes g, sealed under epochID, into the wire format.
// g.Nodes must already be sorted by ID and g.Edges by (from, to, kind);
// Encode does not re-sort, matching cpg.ComputeHash's own contract.
func Encode(epochID epoch.ID, g *cpg.Graph) []byte {
	var buf bytes.Buffer
	buf.Write(MagicSignature[:])
	buf.Write(make([]byte, magicSize-len(MagicSignature)))
	writeU32(&buf, SchemaVersion)
	writeU64(&buf, uint64(epochID))
	buf.Write(g.Hash[:])

	writeU32(&buf, uint32(len(g.Nodes)))
	for _, n := range g.Nodes {
		writeNode(&buf, n)
	}

	writeU32(&buf, uint32(len(g.Edges)))
	for _, e := range g.Edges {
		writeU64(&buf, uint64(e.From))
		writeU64(&buf, uint64(e.To))
		buf.WriteByte(byte(e.Kind))
	}

	writeU32(&buf, uint32(len(g.StringTable)))
	for _, s := range g.StringTable {
		writeBytes(&buf, []byte(s))
	}

	trailer := canon.SHA256(buf.Bytes())
	buf.Write(trailer[:])
	return buf.Bytes()
}

// Decode parses the wire format produced by Encode, verifying the
// magic, schema version, and trailer before trusting any of the body.
// A mismatch at any of those three checks is a fatal, structured
// *kernel.Error -- never a partially-decoded Graph.
func Decode(data []byte) (epoch.ID, *cpg.Graph, error) {
	r := bytes.NewReader(data)

	var magic [magicSize]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || [4]byte(magic[:4]) != MagicSignature {
		return 0, nil, kernel.InvariantViolation("snapshot: missing or corrupt magic header")
	}
	schema, err := readU32(r)
	if err != nil {
		return 0, nil, kernel.InvariantViolation("snapshot: truncated schema version")
	}
	if schema != SchemaVersion {
		return 0, nil, kernel.SchemaVersionMismatch(SchemaVersion, schema)
	}
	epochIDRaw, err := readU64(r)
	if err != nil {
		return 0, nil, kernel.InvariantViolation("snapshot: truncated epoch id")
	}
	var wantHash canon.Hash
	if _, err := io.ReadFull(r, wantHash[:]); err != nil {
		return 0, nil, kernel.InvariantViolation("snapshot: truncated cpg hash header")
	}

	if len(data) < trailerSize {
		return 0, nil, kernel.InvariantViolation("snapshot: shorter than a trailer")
	}
	body := data[:len(data)-trailerSize]
	var gotTrailer canon.Hash
	copy(gotTrailer[:], data[len(data)-trailerSize:])
	wantTrailer := canon.SHA256(body)
	if gotTrailer != wantTrailer {
		return 0, nil, kernel.HashMismatch("snapshot trailer", wantTrailer, gotTrailer)
	}

	nodeCount, err := readU32(r)
	if err != nil {
		return 0, nil, kernel.InvariantViolation("snapshot: truncated node count")
	}
	nodes := make([]cpg.Node, nodeCount)
	for i := range nodes {
		n, err := readNode(r)
		if err != nil {
			return 0, nil, kernel.InvariantViolation(fmt.Sprintf("snapshot: truncated node %d", i))
		}
		nodes[i] = n
	}

	edgeCount, err := readU32(r)
	if err != nil {
		return 0, nil, kernel.InvariantViolation("snapshot: truncated edge count")
	}
	edges := make([]cpg.Edge, edgeCount)
	for i := range edges {
		from, err1 := readU64(r)
		to, err2 := readU64(r)
		kindByte, err3 := r.ReadByte()
		if err1 != nil || err2 != nil || err3 != nil {
			return 0, nil, kernel.InvariantViolation(fmt.Sprintf("snapshot: truncated edge %d", i))
		}
		edges[i] = cpg.Edge{From: cpg.NodeId(from), To: cpg.NodeId(to), Kind: cpg.EdgeKind(kindByte)}
	}

	stringCount, err := readU32(r)
	if err != nil {
		return 0, nil, kernel.InvariantViolation("snapshot: truncated string table count")
	}
	strs := make([]string, stringCount)
	for i := range strs {
		s, err := readBytes(r)
		if err != nil {
			return 0, nil, kernel.InvariantViolation(fmt.Sprintf("snapshot: truncated string %d", i))
		}
		strs[i] = string(s)
	}

	g := &cpg.Graph{Nodes: nodes, Edges: edges, StringTable: strs, Hash: wantHash}
	recomputed := cpg.ComputeHash(nodes, edges, strs)
	if recomputed != wantHash {
		return 0, nil, kernel.HashMismatch("snapshot cpg hash", wantHash, recomputed)
	}
	return epoch.ID(epochIDRaw), g, nil
}

func writeNode(buf *bytes.Buffer, n cpg.Node) {
	writeU64(buf, uint64(n.ID))
	buf.WriteByte(byte(n.Kind))
	writeU32(buf, n.Span.Start)
	writeU32(buf, n.Span.End)
	if n.HasParent {
		writeU64(buf, uint64(n.Parent))
	} else {
		writeU64(buf, noParent)
	}

	var extraBuf bytes.Buffer
	writeExtra(&extraBuf, n.Kind, n.Extra)
	writeU16(buf, uint16(extraBuf.Len()))
	buf.Write(extraBuf.Bytes())
}

func readNode(r *bytes.Reader) (cpg.Node, error) {
	var n cpg.Node
	id, err := readU64(r)
	if err != nil {
		return n, err
	}
	kindByte, err := r.ReadByte()
	if err != nil {
		return n, err
	}
	start, err := readU32(r)
	if err != nil {
		return n, err
	}
	end, err := readU32(r)
	if err != nil {
		return n, err
	}
	parent, err := readU64(r)
	if err != nil {
		return n, err
	}
	n.ID = cpg.NodeId(id)
	n.Kind = cpg.NodeKind(kindByte)
	n.Span = cpg.Span{Start: start, End: end}
	if parent != noParent {
		n.Parent = cpg.NodeId(parent)
		n.HasParent = true
	}

	extraLen, err := readU16(r)
	if err != nil {
		return n, err
	}
	extraBytes, err := readN(r, int(extraLen))
	if err != nil {
		return n, err
	}
	extra, err := readExtra(bytes.NewReader(extraBytes), n.Kind)
	if err != nil {
		return n, err
	}
	n.Extra = extra
	return n, nil
}

func writeExtra(buf *bytes.Buffer, kind cpg.NodeKind, extra cpg.Extra) {
	switch e := extra.(type) {
	case cpg.VariableExtra:
		writeU32(buf, e.NameID)
		writeU32(buf, e.Version)
	case cpg.CallExtra:
		writeU32(buf, e.CalleeNameID)
	case cpg.LiteralExtra:
		buf.Write(e.TextHash[:])
	case cpg.PhiExtra:
		writeU32(buf, e.NameID)
		writeU32(buf, uint32(len(e.Versions)))
		for _, v := range e.Versions {
			writeU32(buf, v)
		}
	default:
		// NoExtra and any future zero-payload kind: nothing to write.
	}
}

func readExtra(r *bytes.Reader, kind cpg.NodeKind) (cpg.Extra, error) {
	switch kind {
	case cpg.KindVariable, cpg.KindParameter:
		nameID, err := readU32(r)
		if err != nil {
			return nil, err
		}
		version, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return cpg.VariableExtra{NameID: nameID, Version: version}, nil
	case cpg.KindCall:
		nameID, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return cpg.CallExtra{CalleeNameID: nameID}, nil
	case cpg.KindLiteral:
		var h canon.Hash
		if _, err := io.ReadFull(r, h[:]); err != nil {
			return nil, err
		}
		return cpg.LiteralExtra{TextHash: h}, nil
	case cpg.KindPhi:
		nameID, err := readU32(r)
		if err != nil {
			return nil, err
		}
		count, err := readU32(r)
		if err != nil {
			return nil, err
		}
		versions := make([]uint32, count)
		for i := range versions {
			v, err := readU32(r)
			if err != nil {
				return nil, err
			}
			versions[i] = v
		}
		return cpg.PhiExtra{NameID: nameID, Versions: versions}, nil
	default:
		return cpg.NoExtra{}, nil
	}
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readN(r *bytes.Reader, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeBytes(buf *bytes.Buffer, v []byte) {
	writeU32(buf, uint32(len(v)))
	buf.Write(v)
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return nil, err
	}
	return out, nil
}
