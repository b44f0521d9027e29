package dashboard

import (
	"dsd/internal/dashboard/interfaces"
	"dsd/internal/models"
	"dsd/internal/providers"
	"os"

	json "github.com/goccy/go-json"
)

// SnapshotStore persists the last-known dashboard snapshots to a single
// zstd-compressed JSON file, so a restarted daemon serves the previous grids
// while the first load is still in flight.
type SnapshotStore struct {
	keeper     interfaces.SnapshotKeeperInterface
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewSnapshotStore(compressor interfaces.CompressorInterface, keeper interfaces.SnapshotKeeperInterface, logger providers.Logger) *SnapshotStore {
	return &SnapshotStore{
		keeper:     keeper,
		compressor: compressor,
		logger:     logger,
	}
}

func (s *SnapshotStore) SaveToFile(fileName string) error {
	snapshot := s.keeper.GetSnapshot()

	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	data, err := s.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (s *SnapshotStore) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := s.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(decompressedData, &snapshot); err != nil {
		return err
	}
	if snapshot.Dashboards == nil {
		s.logger.Warnf(providers.TypeApp, "Snapshot file %s holds no dashboards, ignoring", fileName)
		return nil
	}

	s.keeper.PutSnapshot(&snapshot)
	return nil
}

func (s *SnapshotStore) Close() {
	s.compressor.Close()
}
