// Package image загружает образы прошивки из файлов.
package image

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

// MaxImageSize ограничивает размер образа (16 МБ - максимум адресуемой флеш-памяти).
const MaxImageSize = 16 << 20

// Image - содержимое файла образа.
type Image struct {
	FileName string
	Data     []byte
	// Address - начальный адрес из Intel HEX. Для .bin всегда 0.
	Address uint32
}

// Load читает файл. Формат определяется по расширению: .hex/.ihex - Intel HEX,
// остальное - сырой бинарный образ.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(filepath.Base(path), f)
}

// Read читает образ из r, используя name для определения формата.
func Read(name string, r io.Reader) (*Image, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".hex", ".ihex":
		return readHex(name, r)
	default:
		return readBin(name, r)
	}
}

func readBin(name string, r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty image", name)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%s: image exceeds %d bytes", name, MaxImageSize)
	}
	return &Image{FileName: name, Data: data}, nil
}

// readHex склеивает сегменты Intel HEX в непрерывный образ,
// заполняя промежутки байтом 0xFF (значение стёртой флеш-памяти).
func readHex(name string, r io.Reader) (*Image, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, fmt.Errorf("%s: no data records", name)
	}

	start := segments[0].Address
	last := segments[len(segments)-1]
	end := last.Address + uint32(len(last.Data))
	if end-start > MaxImageSize {
		return nil, fmt.Errorf("%s: image spans %d bytes", name, end-start)
	}

	if len(segments) == 1 {
		return &Image{FileName: name, Data: bytes.Clone(segments[0].Data), Address: start}, nil
	}
	return &Image{FileName: name, Data: mem.ToBinary(start, end-start, 0xff), Address: start}, nil
}
