package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/farcloser/primordium/fault"

	"github.com/airnub/speckit-internal-sub001/internal/types"
)

const timeLayout = time.RFC3339

// ErrSchemaMismatch is returned when an artifact was written with another schema version.
var ErrSchemaMismatch = errors.New("artifact schema version mismatch")

// EncodeArtifact writes the artifact as indented JSON.
func EncodeArtifact(writer io.Writer, artifact *types.RunArtifact) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(artifact); err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}

	return nil
}

// DecodeArtifact reads one artifact and checks its schema version.
func DecodeArtifact(data []byte) (*types.RunArtifact, error) {
	var artifact types.RunArtifact

	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrInvalidJSON, err)
	}

	if artifact.SchemaVersion != types.SchemaVersion {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrSchemaMismatch, artifact.SchemaVersion, types.SchemaVersion)
	}

	return &artifact, nil
}
