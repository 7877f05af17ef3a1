package util

import (
	"bytes"
	"os"
	"path/filepath"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// Encoding 记录文本文件在磁盘上的编码，写回时保持一致
type Encoding string

const (
	UTF8    Encoding = "utf-8"
	UTF8BOM Encoding = "utf-8-bom"
	GBK     Encoding = "gbk"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrUnencodable 表示转换后的文本无法用源文件的编码表示
var ErrUnencodable = errors.Base("text cannot be represented in the file encoding")

// ReadTextFile 智能读取文本文件内容，自动处理 UTF-8 (含 BOM) 和 GBK 编码。
// 返回的内容保证是 UTF-8 编码的字符串。
func ReadTextFile(path string) (string, Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", errors.Errorf("reading %s: %w", path, err)
	}
	text, enc, err := DecodeText(data)
	if err != nil {
		return "", "", errors.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return text, enc, nil
}

// DecodeText 识别并解码原始字节
func DecodeText(data []byte) (string, Encoding, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return string(bytes.TrimPrefix(data, utf8BOM)), UTF8BOM, nil
	}
	if utf8.Valid(data) {
		return string(data), UTF8, nil
	}
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", errors.Errorf("decoding as GBK: %w", err)
	}
	return string(decoded), GBK, nil
}

// EncodeText 把 UTF-8 文本编码回 enc 指定的编码
func EncodeText(text string, enc Encoding) ([]byte, error) {
	switch enc {
	case UTF8BOM:
		return append(append([]byte{}, utf8BOM...), text...), nil
	case GBK:
		out, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, errors.WithStack(ErrUnencodable)
		}
		return out, nil
	default:
		return []byte(text), nil
	}
}

// WriteTextFile 按 enc 编码写回文件。atomic 为 true 时先写同目录临时文件再重命名。
// 编码在打开文件之前完成，编码失败不会改动原文件。
func WriteTextFile(path, text string, enc Encoding, atomic bool) error {
	data, err := EncodeText(text, enc)
	if err != nil {
		return errors.Errorf("encoding %s as %s: %w", filepath.Base(path), enc, err)
	}
	if !atomic {
		// 保留原权限；文件不存在时 perm 才生效
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Errorf("writing %s: %w", path, err)
		}
		return nil
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	// 符号链接写到目标文件上，不替换链接本身
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Errorf("stat %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".zhconv-*")
	if err != nil {
		return errors.Errorf("creating temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return errors.Errorf("writing temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Errorf("closing temporary file: %w", err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		cleanup()
		return errors.Errorf("preserving mode of %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.Errorf("renaming temporary file over %s: %w", path, err)
	}
	return nil
}
