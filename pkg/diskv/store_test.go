package diskv_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/diskv/pkg/diskv"
)

func Test_DiskStore_Roundtrips_Blob_Through_Write_Read_Remove(t *testing.T) {
	t.Parallel()

	s := diskv.NewDiskStore(t.TempDir())

	_, found, err := s.Read("k1")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Write("k1", []byte("payload")))

	val, found, err := s.Read("k1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("payload"), val)

	require.NoError(t, s.Remove("k1"))

	_, found, err = s.Read("k1")
	require.NoError(t, err)
	require.False(t, found)
}

func Test_DiskStore_Write_Replaces_Existing_Blob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := diskv.NewDiskStore(dir)

	require.NoError(t, s.Write("k1", []byte("first")))
	require.NoError(t, s.Write("k1", []byte("second")))

	onDisk, err := os.ReadFile(filepath.Join(dir, "k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("second"), onDisk)

	// The replace is temp-file-and-rename; no temp files remain.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func Test_DiskStore_Remove_Is_Noop_When_Blob_Absent(t *testing.T) {
	t.Parallel()

	s := diskv.NewDiskStore(t.TempDir())

	require.NoError(t, s.Remove("never-written"))
}

func Test_DiskStore_Stores_Blob_Under_Key_Name_Verbatim(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := diskv.NewDiskStore(dir)

	require.NoError(t, s.Write("some key.bin", []byte("v")))

	_, err := os.Stat(filepath.Join(dir, "some key.bin"))
	require.NoError(t, err)
}

func Test_DiskStore_Keys_Skips_Dotfiles_And_Directories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := diskv.NewDiskStore(dir)

	require.NoError(t, s.Write("b", []byte("2")))
	require.NoError(t, s.Write("a", []byte("1")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".diskv.lock"), nil, 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	keys, err := s.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, keys)
}

func Test_DiskStore_Read_Wraps_Non_Absence_Failures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := diskv.NewDiskStore(dir)

	// A directory where a blob is expected: ReadFile fails with something
	// other than absence, which must propagate as *Error.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "k1"), 0o755))

	_, found, err := s.Read("k1")
	require.False(t, found)
	require.Error(t, err)

	var dErr *diskv.Error
	require.ErrorAs(t, err, &dErr)
	require.Equal(t, "k1", dErr.Key)
	require.Equal(t, filepath.Join(dir, "k1"), dErr.Path)
}

func Test_MemStore_Honors_BlobStore_Absence_Contract(t *testing.T) {
	t.Parallel()

	s := diskv.NewMemStore()

	_, found, err := s.Read("k1")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Remove("k1"))

	require.NoError(t, s.Write("k1", []byte("v")))
	require.Equal(t, 1, s.Len())

	keys, err := s.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"k1"}, keys)
}

func Test_MemStore_Returns_Copies_Not_Aliases(t *testing.T) {
	t.Parallel()

	s := diskv.NewMemStore()

	val := []byte("abc")
	require.NoError(t, s.Write("k1", val))

	val[0] = 'X'

	got, found, err := s.Read("k1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("abc"), got)

	got[0] = 'Y'

	again, _, err := s.Read("k1")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
}
