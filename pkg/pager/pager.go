// pkg/pager/pager.go
// Package pager implements fixed-size page I/O against a single backing
// file. Pages are the unit of I/O; all reads and writes are positioned by
// page number, so operations on disjoint pages are independent and no
// shared file cursor exists.
package pager

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// DefaultPageSize is the page size used when none is configured.
	DefaultPageSize = 1 << 20 // 1 MiB
)

var (
	ErrPageNotFound = errors.New("page not found")
)

// Page is a fixed-length buffer addressed by a page number.
// Offset in the backing file = Num * page size.
type Page struct {
	Num  uint64
	Data []byte
}

// Pager performs page-granular I/O on an open file.
type Pager struct {
	file     *os.File
	pageSize int
}

// New wraps an open file with a fixed page size.
func New(file *os.File, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{file: file, pageSize: pageSize}
}

// PageSize returns the configured page size in bytes.
func (p *Pager) PageSize() int {
	return p.pageSize
}

// Allocate returns a fresh in-memory page of zero bytes tagged with the
// given page number. No I/O is performed.
func (p *Pager) Allocate(pageNum uint64) *Page {
	return &Page{
		Num:  pageNum,
		Data: make([]byte, p.pageSize),
	}
}

// Read reads the page at pageNum. It returns ErrPageNotFound if the read
// would pass end-of-file; other failures surface as wrapped I/O errors.
func (p *Pager) Read(pageNum uint64) (*Page, error) {
	page := p.Allocate(pageNum)
	offset := int64(pageNum) * int64(p.pageSize)
	if _, err := p.file.ReadAt(page.Data, offset); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("read page %d: %w", pageNum, err)
	}
	return page, nil
}

// Write writes the page at its offset. Overwrites are unconditional.
func (p *Pager) Write(page *Page) error {
	offset := int64(page.Num) * int64(p.pageSize)
	if _, err := p.file.WriteAt(page.Data, offset); err != nil {
		return fmt.Errorf("write page %d: %w", page.Num, err)
	}
	return nil
}

// Sync flushes file contents to stable storage.
func (p *Pager) Sync() error {
	return p.file.Sync()
}
