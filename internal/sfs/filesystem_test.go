package sfs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type FileSystemSuite struct {
	suite.Suite
}

func TestFileSystemSuite(t *testing.T) {
	suite.Run(t, new(FileSystemSuite))
}

func (s *FileSystemSuite) mount(blockSize, totalBlocks uint32) *FileSystem {
	vol := NewMemoryVolume(blockSize, totalBlocks)
	fs, err := Mount(vol, FormatParams{BlockSize: blockSize, TotalBlocks: totalBlocks})
	s.Require().NoError(err)
	return fs
}

func (s *FileSystemSuite) TestFormatFreshImage() {
	fs := s.mount(4096, 256)

	s.Equal(Magic, fs.sb.Magic)
	s.Equal(NumINodeBlocks(4096, 256), fs.sb.NumINodeBlocks)

	root, err := fs.readInode(RootInode)
	s.Require().NoError(err)
	s.True(root.InUse())
	s.True(root.IsDir())
	s.EqualValues(0, root.ChildCount)
}

func (s *FileSystemSuite) TestRemountPreservesFormat() {
	vol := NewMemoryVolume(4096, 256)
	params := FormatParams{BlockSize: 4096, TotalBlocks: 256}

	fs1, err := Mount(vol, params)
	s.Require().NoError(err)
	s.Require().NoError(fs1.Mkdir("/a"))

	fs2, err := Mount(vol, params)
	s.Require().NoError(err)

	in, err := fs2.findFile("/a")
	s.Require().NoError(err)
	s.True(in.IsDir())
}

func (s *FileSystemSuite) TestMkdirAndCreateNested() {
	fs := s.mount(4096, 256)

	s.Require().NoError(fs.Mkdir("/a"))
	s.Require().NoError(fs.Mkdir("/a/b"))

	h, err := fs.Create("/a/b/c.txt")
	s.Require().NoError(err)
	s.Require().NoError(fs.Release(h))

	in, err := fs.findFile("/a/b/c.txt")
	s.Require().NoError(err)
	s.False(in.IsDir())

	parent, err := fs.findFile("/a/b")
	s.Require().NoError(err)
	s.EqualValues(1, parent.ChildCount)
}

func (s *FileSystemSuite) TestMkdirExistingFails() {
	fs := s.mount(4096, 256)
	s.Require().NoError(fs.Mkdir("/a"))

	err := fs.Mkdir("/a")
	s.Error(err)
	s.Equal(KindAlreadyExists, KindOf(err))
}

func (s *FileSystemSuite) TestWriteReadRoundTrip() {
	fs := s.mount(4096, 256)

	h, err := fs.Create("/f")
	s.Require().NoError(err)

	data := make([]byte, 100000)
	for i := range data {
		data[i] = 'A'
	}
	n, err := fs.Write(h, data, 0)
	s.Require().NoError(err)
	s.Equal(len(data), n)

	readBack := make([]byte, len(data))
	n, err = fs.Read(h, readBack, 0)
	s.Require().NoError(err)
	s.Equal(len(data), n)
	s.Equal(data, readBack)

	short := make([]byte, 10)
	n, err = fs.Read(h, short, uint64(len(data)))
	s.Require().NoError(err)
	s.Equal(0, n)

	attr, err := fs.Getattr("/f")
	s.Require().NoError(err)
	s.EqualValues(len(data), attr.Size)
}

func (s *FileSystemSuite) TestWriteSizeIsMaxNotSum() {
	fs := s.mount(4096, 256)

	h, err := fs.Create("/f")
	s.Require().NoError(err)

	_, err = fs.Write(h, make([]byte, 1000), 0)
	s.Require().NoError(err)

	// Overwrite a leading slice; size must stay at 1000, not grow to 1100.
	_, err = fs.Write(h, make([]byte, 100), 0)
	s.Require().NoError(err)

	attr, err := fs.Getattr("/f")
	s.Require().NoError(err)
	s.EqualValues(1000, attr.Size)
}

func (s *FileSystemSuite) TestDirectoryCapacity() {
	fs := s.mount(4096, 2048)
	s.Require().NoError(fs.Mkdir("/d"))

	capacity := int(fs.dirCapacity())
	s.Equal(448, capacity)

	for i := 0; i < capacity; i++ {
		h, err := fs.Create(fmt.Sprintf("/d/f%d", i))
		s.Require().NoErrorf(err, "entry %d", i)
		s.Require().NoError(fs.Release(h))
	}

	_, err := fs.Create(fmt.Sprintf("/d/f%d", capacity))
	s.Require().Error(err)
	s.Equal(KindNoSpace, KindOf(err))
}

func (s *FileSystemSuite) TestIndirectionSingleAndDouble() {
	fs := s.mount(4096, 128)

	h, err := fs.Create("/big")
	s.Require().NoError(err)

	ids := fs.idsPerBlock()

	singleOffset := uint64(NumDirect) * uint64(fs.sb.BlockSize)
	_, err = fs.Write(h, []byte("single"), singleOffset)
	s.Require().NoError(err)

	in, err := fs.readInode(1)
	s.Require().NoError(err)
	s.NotZero(in.Blocks[SingleIndirectSlot])

	doubleOffset := uint64(NumDirect+ids) * uint64(fs.sb.BlockSize)
	_, err = fs.Write(h, []byte("double"), doubleOffset)
	s.Require().NoError(err)

	in, err = fs.readInode(1)
	s.Require().NoError(err)
	s.NotZero(in.Blocks[DoubleIndirectSlot])

	buf := make([]byte, 6)
	_, err = fs.Read(h, buf, doubleOffset)
	s.Require().NoError(err)
	s.Equal("double", string(buf))
}

func (s *FileSystemSuite) TestUnlinkFreesAllBlocks() {
	fs := s.mount(4096, 128)

	// Create and unlink a file first, so that /big's footprint below is
	// measured against a root directory that has already held an entry (a
	// directory block, once allocated, is never freed merely because it
	// becomes empty).
	primer, err := fs.Create("/primer")
	s.Require().NoError(err)
	s.Require().NoError(fs.Release(primer))
	s.Require().NoError(fs.Unlink("/primer"))

	freeBefore := fs.sb.NumFreeBlocks

	h, err := fs.Create("/big")
	s.Require().NoError(err)

	ids := fs.idsPerBlock()
	doubleOffset := uint64(NumDirect+ids) * uint64(fs.sb.BlockSize)
	_, err = fs.Write(h, []byte("x"), 0)
	s.Require().NoError(err)
	_, err = fs.Write(h, []byte("x"), doubleOffset)
	s.Require().NoError(err)
	s.Require().NoError(fs.Release(h))

	s.Require().NoError(fs.Unlink("/big"))

	s.Equal(freeBefore, fs.sb.NumFreeBlocks)

	_, err = fs.findFile("/big")
	s.Require().Error(err)
	s.Equal(KindNotFound, KindOf(err))
}

func (s *FileSystemSuite) TestRmdirRequiresEmpty() {
	fs := s.mount(4096, 256)
	s.Require().NoError(fs.Mkdir("/d"))

	h, err := fs.Create("/d/f")
	s.Require().NoError(err)
	s.Require().NoError(fs.Release(h))

	err = fs.Rmdir("/d")
	s.Require().Error(err)
	s.Equal(KindNotEmpty, KindOf(err))

	s.Require().NoError(fs.Unlink("/d/f"))
	s.Require().NoError(fs.Rmdir("/d"))

	_, err = fs.findFile("/d")
	s.Require().Error(err)
	s.Equal(KindNotFound, KindOf(err))
}

func (s *FileSystemSuite) TestReaddirListsEntries() {
	fs := s.mount(4096, 256)
	s.Require().NoError(fs.Mkdir("/d"))

	names := []string{"a", "b", "c"}
	for _, n := range names {
		h, err := fs.Create("/d/" + n)
		s.Require().NoError(err)
		s.Require().NoError(fs.Release(h))
	}

	var got []string
	err := fs.Readdir("/d", func(name string) bool {
		got = append(got, name)
		return true
	})
	s.Require().NoError(err)
	s.ElementsMatch(names, got)
}

func (s *FileSystemSuite) TestOpenTooManyFiles() {
	fs := s.mount(4096, 256)
	s.Require().NoError(fs.Mkdir("/d"))

	var handles []HandleID
	for i := 0; i < len(fs.handles); i++ {
		h, err := fs.Create(fmt.Sprintf("/d/f%d", i))
		s.Require().NoError(err)
		handles = append(handles, h)
	}

	_, err := fs.Open("/d/f0", 0)
	s.Require().Error(err)
	s.Equal(KindTooManyOpenFiles, KindOf(err))

	for _, h := range handles {
		s.Require().NoError(fs.Release(h))
	}
}
