package gcsbatch

import "testing"

func TestSplitURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{
			name:       "valid uri",
			uri:        "gs://my-bucket/batches/2024-06.csv",
			wantBucket: "my-bucket",
			wantObject: "batches/2024-06.csv",
		},
		{
			name:       "object at bucket root",
			uri:        "gs://my-bucket/batch.csv",
			wantBucket: "my-bucket",
			wantObject: "batch.csv",
		},
		{name: "missing scheme", uri: "my-bucket/batch.csv", wantErr: true},
		{name: "no object path", uri: "gs://my-bucket", wantErr: true},
		{name: "empty object", uri: "gs://my-bucket/", wantErr: true},
		{name: "empty", uri: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := SplitURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("SplitURI(%q) = (%q, %q), want (%q, %q)",
					tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{uri: "gs://bucket/batches/june.csv", want: "june.csv"},
		{uri: "gs://bucket/june.csv", want: "june.csv"},
		{uri: "gs://bucket", want: "bucket"},
	}

	for _, tt := range tests {
		if got := Filename(tt.uri); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}
