package artifact

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/renameio/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/concuject/concuject/internal/bugmodel"
)

// Set is one bug's complete output: the four files named in spec.md §6.
type Set struct {
	BugID  int
	Log    *bugmodel.BugLog
	Input  []byte
	Order  string // order-<id>.txt contents, already rendered
	Answer []byte // answer-<id>.txt contents, from the reproducer; nil if not run
}

// Names returns the four filenames this set writes, in the fixed order
// Sink.Write uses.
func (s Set) Names() [4]string {
	return [4]string{
		fmt.Sprintf("bug-%d.json", s.BugID),
		fmt.Sprintf("input-%d", s.BugID),
		fmt.Sprintf("order-%d.txt", s.BugID),
		fmt.Sprintf("answer-%d.txt", s.BugID),
	}
}

// Hash returns the blake2b-256 content hash of the set's bug log (as
// compact JSON, not the indented form Sink.Write stores), input, order and
// answer, concatenated in Names order. Sink.Write returns it to the caller;
// the sink does not use it to skip uploading identical sets.
func (s Set) Hash() (string, error) {
	logJSON, err := json.Marshal(s.Log.Items)
	if err != nil {
		return "", fmt.Errorf("artifact: marshaling bug log: %w", err)
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("artifact: initializing hash: %w", err)
	}
	for _, part := range [][]byte{logJSON, s.Input, []byte(s.Order), s.Answer} {
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Sink is where extraction output lands: always the local directory Dir,
// and additionally an S3 bucket when Bucket is non-empty.
type Sink struct {
	Dir    string
	Bucket string
	Prefix string

	s3 *s3.S3
}

func NewSink(dir, bucket, prefix string) (*Sink, error) {
	sink := &Sink{Dir: dir, Bucket: bucket, Prefix: prefix}
	if bucket != "" {
		sess, err := session.NewSession(aws.NewConfig())
		if err != nil {
			return nil, fmt.Errorf("artifact: creating S3 session: %w", err)
		}
		sink.s3 = s3.New(sess)
	}
	return sink, nil
}

// Write commits every file in set, atomically, to the local directory,
// then mirrors them to S3 if a bucket was configured. Local writes never
// partially land: a crash mid-write leaves only renameio's temp file,
// never a truncated destination.
func (sink *Sink) Write(ctx context.Context, set Set) (hash string, err error) {
	hash, err = set.Hash()
	if err != nil {
		return "", err
	}

	logJSON, err := json.MarshalIndent(set.Log.Items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("artifact: marshaling bug log: %w", err)
	}
	names := set.Names()
	contents := [][]byte{logJSON, set.Input, []byte(set.Order), set.Answer}

	if err := os.MkdirAll(sink.Dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: creating output dir %s: %w", sink.Dir, err)
	}
	for i, name := range names {
		if contents[i] == nil {
			continue
		}
		path := filepath.Join(sink.Dir, name)
		if err := renameio.WriteFile(path, contents[i], 0o644); err != nil {
			return "", fmt.Errorf("artifact: writing %s: %w", path, err)
		}
	}

	if sink.s3 != nil {
		for i, name := range names {
			if contents[i] == nil {
				continue
			}
			key := strings.TrimLeft(sink.Prefix+"/"+name, "/")
			if _, err := sink.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
				Bucket: aws.String(sink.Bucket),
				Key:    aws.String(key),
				Body:   bytesReader(contents[i]),
			}); err != nil {
				return "", fmt.Errorf("artifact: uploading %s to s3://%s/%s: %w", name, sink.Bucket, key, err)
			}
		}
	}

	return hash, nil
}

func bytesReader(b []byte) io.ReadSeeker {
	return bytes.NewReader(b)
}
