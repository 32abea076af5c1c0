package multipart

import (
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/goatnetwork/qlink/internal/keystone"
	"github.com/goatnetwork/qlink/internal/keystone/codec"
	"github.com/goatnetwork/qlink/internal/keystone/envelope"
	"github.com/goatnetwork/qlink/internal/keystone/keypath"
	"github.com/goatnetwork/qlink/internal/keystone/messages"
	"github.com/goatnetwork/qlink/internal/ur"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blob(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func TestSinglePartFastPath(t *testing.T) {
	req := messages.NewEthPersonalMessage([]byte("hello"), keypath.MustParse("m/44'/60'/0'/0/0"))
	p, err := keystone.EncodeMessage(keystone.EthSignRequest{EthSignRequest: req})
	require.NoError(t, err)
	text, err := envelope.EncodePayload(p)
	require.NoError(t, err)

	dec := NewDecoder()
	progress, err := dec.Receive(text)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.PartsReceived)
	assert.Equal(t, uint8(100), progress.Percentage)
	assert.True(t, progress.Complete)
	assert.Equal(t, "Complete!", progress.Message())

	progress, err = dec.Receive(text)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.PartsReceived)

	got, err := dec.Result()
	require.NoError(t, err)
	assert.Equal(t, p, got)
	m, err := got.Message()
	require.NoError(t, err)
	assert.Equal(t, keystone.EthSignRequest{EthSignRequest: req}, m)
}

func TestMultiPartRoundTrip(t *testing.T) {
	data := blob(500)
	enc, err := NewEncoder("bytes", data, 100)
	require.NoError(t, err)
	require.True(t, enc.IsMultipart())
	require.Greater(t, enc.PartCount(), 1)

	dec := NewDecoder()
	for i := 0; i < enc.PartCount(); i++ {
		part := enc.NextPart()
		assert.Equal(t, i+1, part.PartNumber)
		progress, err := dec.Receive(part.URString)
		require.NoError(t, err)
		assert.Equal(t, i+1, progress.PartsReceived)
		assert.Nil(t, progress.TotalParts)
		if i == 0 {
			assert.False(t, progress.Complete)
			assert.Equal(t, uint8(100/enc.PartCount()), progress.Percentage)
		}
	}
	require.True(t, dec.IsComplete())

	got, err := dec.Result()
	require.NoError(t, err)
	assert.Equal(t, data, got.Data)
	assert.Equal(t, "bytes", got.Type)
	assert.Equal(t, keystone.EncodingCbor, got.Encoding)
	assert.True(t, got.Metadata.Multipart)
	require.NotNil(t, got.Metadata.Sequence)
	require.NotNil(t, got.Metadata.TotalParts)
	assert.Equal(t, uint32(1), *got.Metadata.Sequence)
	assert.Equal(t, uint32(enc.PartCount()), *got.Metadata.TotalParts)
}

func TestDuplicateFragment(t *testing.T) {
	enc, err := NewEncoder("bytes", blob(500), 100)
	require.NoError(t, err)
	first := enc.NextPart().URString

	dec := NewDecoder()
	_, err = dec.Receive(first)
	require.NoError(t, err)
	progress, err := dec.Receive(first)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.PartsReceived)
	assert.False(t, progress.Complete)
	assert.Equal(t, "Received 1 parts...", progress.Message())

	_, err = dec.Result()
	assert.ErrorIs(t, err, ErrNotComplete)
}

func TestReceiveInvalidFragment(t *testing.T) {
	dec := NewDecoder()
	progress, err := dec.Receive("ur:bytes/1-5/zzzz")
	assert.True(t, codec.IsKind(err, codec.KindEnvelope))
	assert.Equal(t, 0, progress.PartsReceived)

	_, err = dec.Receive("garbage")
	assert.Error(t, err)
	assert.False(t, dec.IsComplete())
}

func TestReceiveMalformedPartHeader(t *testing.T) {
	tests := []struct {
		name   string
		seq    string
		header []interface{}
		want   error
	}{
		{"message longer than fragments", "1-1", []interface{}{1, 1, 100, 0, []byte{1}}, ur.ErrInvalidPart},
		{"oversized sequence", "5000001-5000000", []interface{}{5000001, 5000000, 10, 0, []byte{1}}, ur.ErrMessageTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := cbor.Marshal(tt.header)
			require.NoError(t, err)

			dec := NewDecoder()
			start := time.Now()
			progress, err := dec.Receive("ur:bytes/" + tt.seq + "/" + ur.EncodeBytewords(body))
			assert.Less(t, time.Since(start), time.Second)
			assert.True(t, codec.IsKind(err, codec.KindEnvelope))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, progress.PartsReceived)
			assert.False(t, dec.IsComplete())
		})
	}
}

func TestReset(t *testing.T) {
	enc, err := NewEncoder("bytes", blob(40), 1000)
	require.NoError(t, err)
	dec := NewDecoder()
	_, err = dec.Receive(enc.NextPart().URString)
	require.NoError(t, err)
	require.True(t, dec.IsComplete())

	dec.Reset()
	assert.False(t, dec.IsComplete())
	assert.Equal(t, 0, dec.Progress().PartsReceived)
	_, err = dec.Result()
	assert.ErrorIs(t, err, ErrNotComplete)
}

func TestEncoderCycle(t *testing.T) {
	enc, err := NewEncoder("bytes", blob(500), 100)
	require.NoError(t, err)
	n := enc.PartCount()

	first := enc.NextPart()
	for i := 1; i < n; i++ {
		enc.NextPart()
	}
	assert.Equal(t, first, enc.NextPart())

	enc.Reset()
	assert.Equal(t, first, enc.NextPart())

	part, ok := enc.PartAt(n - 1)
	require.True(t, ok)
	assert.Equal(t, n, part.PartNumber)
	assert.Equal(t, n, part.TotalParts)
	assert.True(t, part.IsMultipart)
	_, ok = enc.PartAt(n)
	assert.False(t, ok)
	_, ok = enc.PartAt(-1)
	assert.False(t, ok)
	assert.Len(t, enc.AllParts(), n)

	single, err := NewEncoder("test", []byte("Small data"), 1000)
	require.NoError(t, err)
	assert.False(t, single.IsMultipart())
	assert.Equal(t, 1, single.PartCount())
	r := single.NextPart()
	assert.Equal(t, 1, r.PartNumber)
	assert.Equal(t, r, single.NextPart())
}

func TestProgressMessage(t *testing.T) {
	total := 5
	p := Progress{PartsReceived: 3, TotalParts: &total, Percentage: 60}
	assert.Equal(t, "Received 3/5 parts (60%)", p.Message())
}

func TestParseFragmentMetadata(t *testing.T) {
	seq, total := parseFragmentMetadata("ur:bytes/3-10/lpax")
	require.NotNil(t, seq)
	require.NotNil(t, total)
	assert.Equal(t, uint32(3), *seq)
	assert.Equal(t, uint32(10), *total)

	seq, total = parseFragmentMetadata("UR:BYTES/2OF7/LPAX")
	require.NotNil(t, seq)
	assert.Equal(t, uint32(2), *seq)
	assert.Equal(t, uint32(7), *total)

	seq, total = parseFragmentMetadata("ur:bytes/aeadaolazm")
	assert.Nil(t, seq)
	assert.Nil(t, total)

	seq, total = parseFragmentMetadata("ur:bytes/x-4/lpax")
	assert.Nil(t, seq)
	require.NotNil(t, total)
	assert.Equal(t, uint32(4), *total)
}
