// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package vecindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// Snapshot format magic and version. Version bumps when the layout
// changes; loaders reject anything else and callers rebuild.
const (
	snapshotMagic   = "CVIX"
	snapshotVersion = 1
)

// writerLock is an exclusive lock file for index writers. Acquisition
// is create-with-O_EXCL; a second writer fails fast with a retryable
// error instead of blocking.
type writerLock struct {
	path string
}

func acquireWriterLock(op, path string) (*writerLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, recerr.Transient(op, fmt.Errorf("writer lock %s held", path))
		}
		return nil, recerr.Internal(op, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, recerr.Internal(op, err)
	}
	return &writerLock{path: path}, nil
}

func (l *writerLock) release() {
	if l != nil {
		os.Remove(l.path)
	}
}

// atomicWrite streams a snapshot to path.tmp, syncs it and renames it
// over path. A crash mid-write leaves the previous snapshot intact.
func atomicWrite(op, path string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return recerr.Internal(op, err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return recerr.Internal(op, err)
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		os.Remove(tmp)
		return recerr.Internal(op, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return recerr.Internal(op, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return recerr.Internal(op, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return recerr.Internal(op, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return recerr.Internal(op, err)
	}
	return nil
}

func writeGraph(w io.Writer, g *graph) error {
	if _, err := w.Write([]byte(snapshotMagic)); err != nil {
		return err
	}
	header := []interface{}{
		uint8(snapshotVersion),
		uint32(g.dim),
		uint32(g.m),
		uint32(g.efBuild),
		uint32(g.entry),
		int32(g.maxLevel),
		uint32(len(g.nodes)),
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for i := range g.nodes {
		n := &g.nodes[i]
		if len(n.neighbors) > 255 {
			return fmt.Errorf("node %d has %d levels", i, len(n.neighbors))
		}
		if err := binary.Write(w, binary.LittleEndian, uint8(len(n.neighbors)-1)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, []float32(n.vec)); err != nil {
			return err
		}
		for _, nbs := range n.neighbors {
			if err := binary.Write(w, binary.LittleEndian, uint32(len(nbs))); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, nbs); err != nil {
				return err
			}
		}
	}
	return nil
}

func readGraph(r io.Reader) (*graph, error) {
	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, err
	}
	if string(magic) != snapshotMagic {
		return nil, fmt.Errorf("bad snapshot magic %q", magic)
	}
	var (
		version  uint8
		dim      uint32
		m        uint32
		efBuild  uint32
		entry    uint32
		maxLevel int32
		count    uint32
	)
	for _, v := range []interface{}{&version, &dim, &m, &efBuild, &entry, &maxLevel, &count} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, err
		}
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}

	g := newGraph(int(dim), int(m), int(efBuild), 0)
	g.entry = entry
	g.maxLevel = int(maxLevel)
	g.nodes = make([]node, count)
	for i := range g.nodes {
		var topLevel uint8
		if err := binary.Read(r, binary.LittleEndian, &topLevel); err != nil {
			return nil, err
		}
		vec := make(models.Vector, dim)
		if err := binary.Read(r, binary.LittleEndian, []float32(vec)); err != nil {
			return nil, err
		}
		nbs := make([][]uint32, int(topLevel)+1)
		for l := range nbs {
			var nbCount uint32
			if err := binary.Read(r, binary.LittleEndian, &nbCount); err != nil {
				return nil, err
			}
			layer := make([]uint32, nbCount)
			if err := binary.Read(r, binary.LittleEndian, layer); err != nil {
				return nil, err
			}
			nbs[l] = layer
		}
		g.nodes[i] = node{vec: vec, neighbors: nbs}
	}
	return g, nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > int(^uint16(0)) {
		return fmt.Errorf("string too long: %d bytes", len(s))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
