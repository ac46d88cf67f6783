package rookery_test

import (
	"context"
	"io"

	"github.com/sagarc03/rookery"
	"github.com/stretchr/testify/mock"
)

var anyCtx = mock.Anything

type SpyDriver struct {
	mock.Mock
}

func (s *SpyDriver) Stat(ctx context.Context, p rookery.Path) (rookery.Entry, error) {
	args := s.Called(ctx, p)
	return args.Get(0).(rookery.Entry), args.Error(1)
}

func (s *SpyDriver) ReadDir(ctx context.Context, p rookery.Path) ([]rookery.Entry, error) {
	args := s.Called(ctx, p)
	entries, _ := args.Get(0).([]rookery.Entry)
	return entries, args.Error(1)
}

func (s *SpyDriver) Open(ctx context.Context, p rookery.Path) (io.ReadCloser, error) {
	args := s.Called(ctx, p)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (s *SpyDriver) Write(ctx context.Context, p rookery.Path, content io.Reader) (int64, error) {
	args := s.Called(ctx, p, content)
	return args.Get(0).(int64), args.Error(1)
}

func (s *SpyDriver) Rename(ctx context.Context, src, dst rookery.Path) error {
	args := s.Called(ctx, src, dst)
	return args.Error(0)
}

func (s *SpyDriver) RemoveAll(ctx context.Context, p rookery.Path) error {
	args := s.Called(ctx, p)
	return args.Error(0)
}

type staticLinks string

func (l staticLinks) Link(p rookery.Path) string {
	return rookery.BaseURL(string(l)).Link(p)
}
