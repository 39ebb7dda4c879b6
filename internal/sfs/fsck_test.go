package sfs

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type FsckSuite struct {
	suite.Suite
}

func TestFsckSuite(t *testing.T) {
	suite.Run(t, new(FsckSuite))
}

func (s *FsckSuite) TestFreshImageHasNoViolations() {
	vol := NewMemoryVolume(4096, 256)
	fs, err := Mount(vol, FormatParams{BlockSize: 4096, TotalBlocks: 256})
	s.Require().NoError(err)

	s.Require().NoError(fs.Mkdir("/a"))
	h, err := fs.Create("/a/f")
	s.Require().NoError(err)
	_, err = fs.Write(h, []byte("hello"), 0)
	s.Require().NoError(err)
	s.Require().NoError(fs.Release(h))

	violations, err := NewChecker(fs).Check()
	s.Require().NoError(err)
	s.Empty(violations)
}

func (s *FsckSuite) TestCorruptedCounterIsReported() {
	vol := NewMemoryVolume(4096, 256)
	fs, err := Mount(vol, FormatParams{BlockSize: 4096, TotalBlocks: 256})
	s.Require().NoError(err)

	fs.sb.NumFreeBlocks += 7 // corrupt without touching the bitmap

	violations, err := NewChecker(fs).Check()
	s.Require().NoError(err)
	s.Require().Len(violations, 1)
	s.Equal("free-block-count", violations[0].Kind)
}

func (s *FsckSuite) TestFixCorrectsCounters() {
	vol := NewMemoryVolume(4096, 256)
	fs, err := Mount(vol, FormatParams{BlockSize: 4096, TotalBlocks: 256})
	s.Require().NoError(err)

	fs.sb.NumFreeBlocks += 7

	checker := NewChecker(fs)
	_, err = checker.Check()
	s.Require().NoError(err)
	s.Require().NoError(checker.Fix())

	violations, err := NewChecker(fs).Check()
	s.Require().NoError(err)
	s.Empty(violations)
}
