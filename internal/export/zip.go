package export

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"time"
)

// ErrArchiveTooLarge is returned when the entries exceed what a ZIP without
// the ZIP64 extension can describe.
var ErrArchiveTooLarge = errors.New("archive exceeds zip32 limits")

// File is one archive entry.
type File struct {
	Name string
	Data []byte
}

const (
	localHeaderSig   = 0x04034b50
	centralHeaderSig = 0x02014b50
	endOfCentralSig  = 0x06054b50

	localHeaderLen   = 30
	centralHeaderLen = 46
	endOfCentralLen  = 22

	zipVersion  = 20 // 2.0, the minimum for stored entries with directories
	methodStore = 0
)

var le = binary.LittleEndian

// Zip writes files into an uncompressed archive. Entries keep the given
// order and all carry modTime, so equal input gives equal bytes.
func Zip(files []File, modTime time.Time) ([]byte, error) {
	if len(files) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d entries", ErrArchiveTooLarge, len(files))
	}
	dosTime, dosDate := dosDateTime(modTime)

	var buf bytes.Buffer
	var central []byte
	for _, f := range files {
		if len(f.Name) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: name of %d bytes", ErrArchiveTooLarge, len(f.Name))
		}
		offset := buf.Len()
		if uint64(offset)+uint64(localHeaderLen+len(f.Name)+len(f.Data)) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: %s ends past 4 GiB", ErrArchiveTooLarge, f.Name)
		}
		crc := crc32.ChecksumIEEE(f.Data)
		size := uint32(len(f.Data))

		h := make([]byte, 0, localHeaderLen+len(f.Name))
		h = le.AppendUint32(h, localHeaderSig)
		h = le.AppendUint16(h, zipVersion)
		h = le.AppendUint16(h, 0) // flags
		h = le.AppendUint16(h, methodStore)
		h = le.AppendUint16(h, dosTime)
		h = le.AppendUint16(h, dosDate)
		h = le.AppendUint32(h, crc)
		h = le.AppendUint32(h, size) // compressed
		h = le.AppendUint32(h, size) // uncompressed
		h = le.AppendUint16(h, uint16(len(f.Name)))
		h = le.AppendUint16(h, 0) // extra length
		h = append(h, f.Name...)
		buf.Write(h)
		buf.Write(f.Data)

		central = le.AppendUint32(central, centralHeaderSig)
		central = le.AppendUint16(central, zipVersion) // made by
		central = le.AppendUint16(central, zipVersion) // needed
		central = le.AppendUint16(central, 0)
		central = le.AppendUint16(central, methodStore)
		central = le.AppendUint16(central, dosTime)
		central = le.AppendUint16(central, dosDate)
		central = le.AppendUint32(central, crc)
		central = le.AppendUint32(central, size)
		central = le.AppendUint32(central, size)
		central = le.AppendUint16(central, uint16(len(f.Name)))
		central = le.AppendUint16(central, 0) // extra length
		central = le.AppendUint16(central, 0) // comment length
		central = le.AppendUint16(central, 0) // disk number start
		central = le.AppendUint16(central, 0) // internal attributes
		central = le.AppendUint32(central, 0) // external attributes
		central = le.AppendUint32(central, uint32(offset))
		central = append(central, f.Name...)
	}

	cdOffset := buf.Len()
	if uint64(cdOffset)+uint64(len(central)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: central directory ends past 4 GiB", ErrArchiveTooLarge)
	}
	buf.Write(central)

	end := make([]byte, 0, endOfCentralLen)
	end = le.AppendUint32(end, endOfCentralSig)
	end = le.AppendUint16(end, 0) // this disk
	end = le.AppendUint16(end, 0) // disk with central directory
	end = le.AppendUint16(end, uint16(len(files)))
	end = le.AppendUint16(end, uint16(len(files)))
	end = le.AppendUint32(end, uint32(len(central)))
	end = le.AppendUint32(end, uint32(cdOffset))
	end = le.AppendUint16(end, 0) // comment length
	buf.Write(end)

	return buf.Bytes(), nil
}

// dosDateTime encodes t in MS-DOS format. Times before 1980 clamp to the
// DOS epoch, 1980-01-01 00:00:00.
func dosDateTime(t time.Time) (uint16, uint16) {
	if t.Year() < 1980 {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if t.Year() > 2107 {
		t = time.Date(2107, 12, 31, 23, 59, 58, 0, time.UTC)
	}
	tm := uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)
	dt := uint16((t.Year()-1980)<<9 | int(t.Month())<<5 | t.Day())
	return tm, dt
}
