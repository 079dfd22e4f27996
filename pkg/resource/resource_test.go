package resource

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rescp17/slidingftp/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to create a file under dir
func writeFile(tb testing.TB, dir, name, content string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLocate_Found(t *testing.T) {
	root := t.TempDir()
	content := strings.Repeat("to be or not to be ", 13)
	writeFile(t, root, "hamlet.txt", content)

	res, err := Locate(root, "hamlet.txt")
	require.NoError(t, err)

	assert.Equal(t, "hamlet.txt", res.Name)
	assert.Equal(t, int64(len(content)), res.Size)
	assert.True(t, strings.HasPrefix(res.MimeType, "text/plain"), res.MimeType)
	assert.Len(t, res.Checksum, 64)

	f, err := res.Open()
	require.NoError(t, err)
	defer f.Close()
	sum, err := Checksum(f)
	require.NoError(t, err)
	assert.Equal(t, res.Checksum, sum)
}

func TestLocate_NotFound(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "sub/inner.txt", "x")
	outside := writeFile(t, t.TempDir(), "secret.txt", "x")

	tests := []struct {
		name     string
		resource string
	}{
		{"missing", "nope.txt"},
		{"empty", ""},
		{"directory", "sub"},
		{"parent escape", "../secret.txt"},
		{"absolute", outside},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Locate(root, tt.resource)
			assert.ErrorIs(t, err, protocol.ErrNotFound)
			assert.Equal(t, protocol.CategoryNotFound, protocol.Categorize(err))
		})
	}
}

func TestLocate_SymlinkOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := writeFile(t, t.TempDir(), "secret.txt", "x")
	if err := os.Symlink(outside, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	_, err := Locate(root, "link.txt")
	assert.ErrorIs(t, err, protocol.ErrNotFound)
}

func TestLocate_WithoutRoot(t *testing.T) {
	path := writeFile(t, t.TempDir(), "hamlet.txt", "words")

	res, err := Locate("", path)
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, int64(5), res.Size)
}

func TestLocate_RejectsNonUTF8(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "blob.bin", "ab\xffcd\xfe")

	_, err := Locate(root, "blob.bin")
	assert.ErrorIs(t, err, protocol.ErrNotText)
	assert.Equal(t, protocol.CategoryNotFound, protocol.Categorize(err))
}

// splitReader hands out one byte per Read so every rune straddles a write.
type splitReader struct {
	data []byte
}

func (r *splitReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}

func TestInspect(t *testing.T) {
	tests := []struct {
		name    string
		content string
		text    bool
	}{
		{"empty", "", true},
		{"ascii", "hamlet", true},
		{"multibyte", "Ophélie 日本語 🎭", true},
		{"invalid byte", "ab\xffcd", false},
		{"lone continuation", "ab\x80", false},
		{"truncated rune at end", "ab\xe6\x97", false},
		{"overlong", "\xc0\xaf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := Checksum(strings.NewReader(tt.content))
			require.NoError(t, err)

			for _, r := range []io.Reader{strings.NewReader(tt.content), &splitReader{data: []byte(tt.content)}} {
				sum, text, err := Inspect(r)
				require.NoError(t, err)
				assert.Equal(t, want, sum)
				assert.Equal(t, tt.text, text)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", "abc")

	ok, err := Verify(path, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(path, "BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD")
	require.NoError(t, err)
	assert.True(t, ok, "hex case does not matter")

	ok, err = Verify(path, "deadbeef")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Verify(filepath.Join(t.TempDir(), "missing"), "x")
	assert.Error(t, err)
}
