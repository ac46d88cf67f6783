// Package blob provides a storage driver over an S3-compatible bucket.
//
// A file is an object keyed by its path. Directories are virtual: a
// directory exists while any key lives below it, and an empty marker object
// named "<dir>/" keeps it alive once its last child is gone. A directory's
// modification time is the newest of its marker and its immediate entries.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sagarc03/rookery"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMultipartThreshold = 5 << 20
	defaultRenameConcurrency  = 10
	streamPartSize            = 16 << 20

	markerContentType = "application/x-directory"
	objectContentType = "application/octet-stream"
)

// Store is a rookery.Driver over a bucket.
type Store struct {
	client      *minio.Client
	bucket      string
	prefix      string // "" or "name/"
	threshold   int64
	concurrency int
}

// New connects to the bucket described by cfg, creating it when
// cfg.CreateBucket is set.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("new blob store: %w", err)
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("new blob store: create client: %w", err)
		}
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("new blob store: check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.CreateBucket {
			return nil, fmt.Errorf("new blob store: bucket %s does not exist", cfg.Bucket)
		}
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("new blob store: make bucket %s: %w", cfg.Bucket, err)
		}
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	threshold := cfg.MultipartThreshold
	if threshold <= 0 {
		threshold = defaultMultipartThreshold
	}

	concurrency := cfg.MaxRenameConcurrency
	if concurrency <= 0 {
		concurrency = defaultRenameConcurrency
	}

	return &Store{
		client:      client,
		bucket:      cfg.Bucket,
		prefix:      prefix,
		threshold:   threshold,
		concurrency: concurrency,
	}, nil
}

func (s *Store) key(p rookery.Path) string {
	return s.prefix + string(p)
}

// dirKey is the marker key of p and the listing prefix of its children.
func (s *Store) dirKey(p rookery.Path) string {
	if p.IsRoot() {
		return s.prefix
	}
	return s.prefix + string(p) + "/"
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

func translate(err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %w", rookery.ErrNotFound, err)
	}
	return err
}

// Stat describes the node at p.
func (s *Store) Stat(ctx context.Context, p rookery.Path) (rookery.Entry, error) {
	if !p.IsRoot() {
		info, err := s.client.StatObject(ctx, s.bucket, s.key(p), minio.StatObjectOptions{})
		if err == nil {
			return rookery.Entry{
				Name:         p.Name(),
				Type:         rookery.File,
				LastModified: info.LastModified,
				Size:         info.Size,
			}, nil
		}
		if !isNotFound(err) {
			return rookery.Entry{}, fmt.Errorf("stat %s: %w", p, err)
		}
	}

	found, newest, err := s.scanDir(ctx, p)
	if err != nil {
		return rookery.Entry{}, fmt.Errorf("stat %s: %w", p, err)
	}
	if !found && !p.IsRoot() {
		return rookery.Entry{}, fmt.Errorf("stat %s: %w", p, rookery.ErrNotFound)
	}

	return rookery.Entry{Name: p.Name(), Type: rookery.Directory, LastModified: newest}, nil
}

// scanDir lists the immediate keys below p. found reports whether anything,
// the marker included, lives there.
func (s *Store) scanDir(ctx context.Context, p rookery.Path) (bool, time.Time, error) {
	prefix := s.dirKey(p)

	var (
		found  bool
		newest time.Time
	)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return false, time.Time{}, obj.Err
		}
		found = true
		if obj.LastModified.After(newest) {
			newest = obj.LastModified
		}
	}

	return found, newest, nil
}

// ReadDir lists the immediate children of p ordered by name.
func (s *Store) ReadDir(ctx context.Context, p rookery.Path) ([]rookery.Entry, error) {
	dir, err := s.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if dir.Type != rookery.Directory {
		return nil, fmt.Errorf("read dir %s: %w", p, rookery.ErrNotADirectory)
	}

	prefix := s.dirKey(p)
	entries := []rookery.Entry{}

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("read dir %s: %w", p, translate(obj.Err))
		}
		if obj.Key == prefix {
			continue
		}

		name, isDir := strings.CutSuffix(strings.TrimPrefix(obj.Key, prefix), "/")
		if name == "" {
			continue
		}

		if isDir {
			entries = append(entries, rookery.Entry{Name: name, Type: rookery.Directory})
			continue
		}
		entries = append(entries, rookery.Entry{
			Name:         name,
			Type:         rookery.File,
			LastModified: obj.LastModified,
			Size:         obj.Size,
		})
	}

	slices.SortFunc(entries, func(a, b rookery.Entry) int {
		return strings.Compare(a.Name, b.Name)
	})

	if err := s.fillDirTimes(ctx, p, entries); err != nil {
		return nil, fmt.Errorf("read dir %s: %w", p, err)
	}

	return entries, nil
}

// fillDirTimes resolves the modification time of every subdirectory entry.
// Listings report none for common prefixes.
func (s *Store) fillDirTimes(ctx context.Context, p rookery.Path, entries []rookery.Entry) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range entries {
		if entries[i].Type != rookery.Directory {
			continue
		}
		g.Go(func() error {
			_, newest, err := s.scanDir(gctx, p.Join(entries[i].Name))
			entries[i].LastModified = newest
			return err
		})
	}

	return g.Wait()
}

// Open returns the content of the file at p. The returned reader supports
// Seek through ranged requests.
func (s *Store) Open(ctx context.Context, p rookery.Path) (io.ReadCloser, error) {
	if p.IsRoot() {
		return nil, fmt.Errorf("open %s: %w", p, rookery.ErrNotFound)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.key(p), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, translate(err))
	}

	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("open %s: %w", p, translate(err))
	}

	return obj, nil
}

// Write stores content at p. Parent markers are only created once the
// upload succeeded, so a failed write leaves nothing behind.
func (s *Store) Write(ctx context.Context, p rookery.Path, content io.Reader) (int64, error) {
	if p.IsRoot() {
		return 0, fmt.Errorf("write root: %w", rookery.ErrInvalidPath)
	}

	missing, err := s.checkParents(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", p, err)
	}

	isDir, _, err := s.scanDir(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", p, err)
	}
	if isDir {
		return 0, fmt.Errorf("write %s: target is a directory: %w", p, rookery.ErrInvalidInput)
	}

	n, err := s.put(ctx, s.key(p), content)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", p, err)
	}

	if err := s.mkdirs(ctx, missing); err != nil {
		return 0, fmt.Errorf("write %s: %w", p, err)
	}

	return n, nil
}

// put uploads small content in one request and streams the rest in parts.
func (s *Store) put(ctx context.Context, key string, content io.Reader) (int64, error) {
	var head bytes.Buffer
	n, err := io.CopyN(&head, content, s.threshold+1)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read content: %w", err)
	}

	if n <= s.threshold {
		info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(head.Bytes()), n,
			minio.PutObjectOptions{ContentType: objectContentType})
		if err != nil {
			return 0, fmt.Errorf("put object: %w", err)
		}
		return info.Size, nil
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, io.MultiReader(&head, content), -1,
		minio.PutObjectOptions{ContentType: objectContentType, PartSize: streamPartSize})
	if err != nil {
		return 0, fmt.Errorf("put object: %w", err)
	}
	return info.Size, nil
}

// checkParents fails with ErrNotADirectory when an ancestor of p is a file
// and returns the ancestors that have no marker yet.
func (s *Store) checkParents(ctx context.Context, p rookery.Path) ([]rookery.Path, error) {
	var missing []rookery.Path

	for _, a := range p.Ancestors() {
		_, err := s.client.StatObject(ctx, s.bucket, s.key(a), minio.StatObjectOptions{})
		if err == nil {
			return nil, fmt.Errorf("%s is a file: %w", a, rookery.ErrNotADirectory)
		}
		if !isNotFound(err) {
			return nil, fmt.Errorf("stat %s: %w", a, err)
		}

		_, err = s.client.StatObject(ctx, s.bucket, s.dirKey(a), minio.StatObjectOptions{})
		switch {
		case err == nil:
		case isNotFound(err):
			missing = append(missing, a)
		default:
			return nil, fmt.Errorf("stat %s: %w", a, err)
		}
	}

	return missing, nil
}

func (s *Store) mkdirs(ctx context.Context, dirs []rookery.Path) error {
	for _, d := range dirs {
		if d.IsRoot() {
			continue
		}
		_, err := s.client.PutObject(ctx, s.bucket, s.dirKey(d), bytes.NewReader(nil), 0,
			minio.PutObjectOptions{ContentType: markerContentType})
		if err != nil {
			return fmt.Errorf("mkdir %s: %w", d, err)
		}
	}
	return nil
}

// Rename moves src, with its subtree, to dst. Objects are copied in
// parallel and the sources removed only once every copy succeeded; a failed
// copy removes the copies already made.
func (s *Store) Rename(ctx context.Context, src, dst rookery.Path) error {
	if src.IsRoot() || dst.IsRoot() {
		return fmt.Errorf("rename %s to %s: %w", src, dst, rookery.ErrInvalidPath)
	}

	source, err := s.Stat(ctx, src)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	missing, err := s.checkParents(ctx, dst)
	if err != nil {
		return fmt.Errorf("rename %s to %s: %w", src, dst, err)
	}

	var pairs [][2]string
	if source.Type == rookery.File {
		pairs = [][2]string{{s.key(src), s.key(dst)}}
	} else {
		keys, err := s.listKeys(ctx, s.dirKey(src))
		if err != nil {
			return fmt.Errorf("rename %s: %w", src, err)
		}
		srcPrefix, dstPrefix := s.dirKey(src), s.dirKey(dst)
		for _, k := range keys {
			pairs = append(pairs, [2]string{k, dstPrefix + strings.TrimPrefix(k, srcPrefix)})
		}
	}

	if err := s.copyAll(ctx, pairs); err != nil {
		return fmt.Errorf("rename %s to %s: %w", src, dst, err)
	}

	sources := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		sources = append(sources, pair[0])
	}
	if err := s.removeKeys(ctx, sources); err != nil {
		return fmt.Errorf("rename %s: remove source: %w", src, err)
	}

	if err := s.mkdirs(ctx, append(missing, src.Parent())); err != nil {
		return fmt.Errorf("rename %s to %s: %w", src, dst, err)
	}

	return nil
}

func (s *Store) copyAll(ctx context.Context, pairs [][2]string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var (
		mu     sync.Mutex
		copied []string
	)

	for _, pair := range pairs {
		g.Go(func() error {
			_, err := s.client.CopyObject(gctx,
				minio.CopyDestOptions{Bucket: s.bucket, Object: pair[1]},
				minio.CopySrcOptions{Bucket: s.bucket, Object: pair[0]},
			)
			if err != nil {
				return fmt.Errorf("copy %s to %s: %w", pair[0], pair[1], translate(err))
			}

			mu.Lock()
			copied = append(copied, pair[1])
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		return nil
	}

	if rbErr := s.removeKeys(context.WithoutCancel(ctx), copied); rbErr != nil {
		return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
	}
	return err
}

// RemoveAll deletes p and everything below it.
func (s *Store) RemoveAll(ctx context.Context, p rookery.Path) error {
	e, err := s.Stat(ctx, p)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	keys := []string{s.key(p)}
	if e.Type == rookery.Directory {
		keys, err = s.listKeys(ctx, s.dirKey(p))
		if err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}

	if err := s.removeKeys(ctx, keys); err != nil {
		return fmt.Errorf("remove %s: %w", p, err)
	}

	if err := s.mkdirs(ctx, []rookery.Path{p.Parent()}); err != nil {
		return fmt.Errorf("remove %s: %w", p, err)
	}

	return nil
}

func (s *Store) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (s *Store) removeKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var errs []error
	for res := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.ObjectName, res.Err))
		}
	}

	return errors.Join(errs...)
}
