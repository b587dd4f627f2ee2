package terminal

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Charset описывает кодировку вывода устройства.
// Нулевое значение - UTF-8 без перекодирования.
type Charset struct {
	name string
	enc  encoding.Encoding
}

// LookupCharset находит кодировку по метке ("cp1251", "koi8-r", "utf-8").
// Пустая метка означает UTF-8.
func LookupCharset(label string) (*Charset, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return &Charset{name: "utf-8"}, nil
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("unknown charset %q", label)
	}
	if name == "utf-8" {
		return &Charset{name: name}, nil
	}
	return &Charset{name: name, enc: enc}, nil
}

// Name возвращает каноническое имя кодировки.
func (c *Charset) Name() string {
	if c == nil || c.name == "" {
		return "utf-8"
	}
	return c.name
}

// NewDecodingWriter возвращает writer, перекодирующий вывод устройства в UTF-8.
// Многобайтные последовательности, разрезанные между порциями, собираются.
func (c *Charset) NewDecodingWriter(w io.Writer) io.Writer {
	if c == nil || c.enc == nil {
		return w
	}
	return transform.NewWriter(w, c.enc.NewDecoder())
}

// Decode перекодирует порцию в UTF-8.
func (c *Charset) Decode(p []byte) (string, error) {
	if c == nil || c.enc == nil {
		return string(p), nil
	}
	res, _, err := transform.Bytes(c.enc.NewDecoder(), p)
	if err != nil {
		return "", err
	}
	return string(res), nil
}

// Encode перекодирует ввод оператора в кодировку устройства.
func (c *Charset) Encode(s string) ([]byte, error) {
	if c == nil || c.enc == nil {
		return []byte(s), nil
	}
	res, _, err := transform.Bytes(c.enc.NewEncoder(), []byte(s))
	if err != nil {
		return nil, err
	}
	return res, nil
}
