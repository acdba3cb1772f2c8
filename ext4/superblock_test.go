package ext4

import "testing"

func TestSuperblockGetBlockSize(t *testing.T) {
	tests := []struct {
		name         string
		logBlockSize uint32
		want         int64
	}{
		{"1KiB", 0, 1024},
		{"4KiB", 2, 4096},
		{"64KiB", 6, 65536},
		{"reserved shift falls back to 1KiB", 32, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := Superblock{LogBlockSize: tt.logBlockSize}
			if got := sb.GetBlockSize(); got != tt.want {
				t.Errorf("GetBlockSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSuperblockFeatureAccessors(t *testing.T) {
	sb := Superblock{
		FeatureCompat:   featureCompatDirPrealloc | featureCompatHasJournal,
		FeatureIncompat: featureIncompatExtents,
		FeatureRoCompat: featureRoCompatHugeFile,
	}

	if !sb.FeatureCompatDirPrealloc() {
		t.Error("expected dir-prealloc feature set")
	}
	if !sb.FeatureCompatHasJournal() {
		t.Error("expected has-journal feature set")
	}
	if !sb.FeatureIncompatExtents() {
		t.Error("expected extents feature set")
	}
	if sb.FeatureInCompat64bit() {
		t.Error("expected 64bit feature unset")
	}
	if !sb.FeatureRoCompatHugeFile() {
		t.Error("expected huge-file feature set")
	}
	if sb.FeatureRoCompatSparseSuper() {
		t.Error("expected sparse-super feature unset")
	}
}
