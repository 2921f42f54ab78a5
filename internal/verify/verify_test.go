package verify_test

import (
	"strings"

	"github.com/stretchr/testify/require"
	"testing"

	"github.com/studio1767/hashforge/internal/verify"
)

func TestCheck(t *testing.T) {
	require.Equal(t, verify.Match, verify.Check("ABCD", verify.NewExpectedSet("abcd")))
	require.Equal(t, verify.NotVerified, verify.Check("ABCD", verify.NewExpectedSet()))
	require.Equal(t, verify.NotVerified, verify.Check("ABCD", nil))
	require.Equal(t, verify.Mismatch, verify.Check("ABCD", verify.NewExpectedSet("1234")))
	require.Equal(t, verify.Match, verify.Check("abcd", verify.NewExpectedSet("1234", "ABCD")))
}

func TestParseCheckFileLines(t *testing.T) {
	text := "d41d8cd98f00b204e9800998ecf8427e  file.txt\n5eb63bbbe01eeed093cb22bb8f5acdc3 *other.txt"

	es := verify.Parse(text)
	require.Equal(t, []string{
		"d41d8cd98f00b204e9800998ecf8427e",
		"5eb63bbbe01eeed093cb22bb8f5acdc3",
	}, es.Entries())
}

func TestParseBareListAndCase(t *testing.T) {
	text := "\r\n  DA39A3EE5E6B4B0D3255BFEF95601890AFD80709  \r\nda39a3ee5e6b4b0d3255bfef95601890afd80709\r\n\n"

	es := verify.Parse(text)
	require.Equal(t, 1, es.Len())
	require.True(t, es.Contains("da39a3ee5e6b4b0d3255bfef95601890afd80709"))
}

func TestParseEmbeddedHex(t *testing.T) {
	// BSD style: first token is not hex, the digest is found inside the line
	es := verify.Parse("MD5 (file.txt) = d41d8cd98f00b204e9800998ecf8427e")
	require.Equal(t, []string{"d41d8cd98f00b204e9800998ecf8427e"}, es.Entries())
}

func TestParseFallsBackToLiteralLine(t *testing.T) {
	es := verify.Parse("not a hash at all")
	require.Equal(t, []string{"not a hash at all"}, es.Entries())
}

func TestParseSkipsComments(t *testing.T) {
	text := strings.Join([]string{
		"; dir/file.bin",
		"# generated",
		"D41D8CD98F00B204E9800998ECF8427E *dir/file.bin",
	}, "\n")

	es := verify.Parse(text)
	require.Equal(t, []string{"D41D8CD98F00B204E9800998ECF8427E"}, es.Entries())
}

func TestParseReader(t *testing.T) {
	es, err := verify.ParseReader(strings.NewReader("abcdef\n*012345"))
	require.NoError(t, err)
	require.Equal(t, []string{"abcdef", "012345"}, es.Entries())
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "match", verify.Match.String())
	require.Equal(t, "mismatch", verify.Mismatch.String())
	require.Equal(t, "not verified", verify.NotVerified.String())
}

func TestParseReaderLongLines(t *testing.T) {
	digest := strings.Repeat("ab", 32)
	long := strings.Repeat("x", 2*1024*1024)
	text := long + "\n" + digest + " *" + long + "\r\n" + digest[:32]

	set, err := verify.ParseReader(strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, []string{long, digest, digest[:32]}, set.Entries())
}
