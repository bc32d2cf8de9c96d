package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := CLoginPayload{Username: "nguyen", Password: "hunter2"}.Marshal()
	frameBytes := Encode(CLogin, payload)

	status, frame, consumed := TryDecodeOne(frameBytes)
	require.Equal(t, Ready, status)
	assert.Equal(t, len(frameBytes), consumed)
	assert.Equal(t, CLogin, frame.Type)
	assert.Equal(t, Version, frame.Version)

	got, err := UnmarshalCLogin(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, "nguyen", got.Username)
	assert.Equal(t, "hunter2", got.Password)
}

func TestTryDecodeOneNeedsMoreOnShortHeader(t *testing.T) {
	status, _, consumed := TryDecodeOne([]byte{1, 0})
	assert.Equal(t, NeedMore, status)
	assert.Equal(t, 0, consumed)
}

func TestTryDecodeOneNeedsMoreOnPartialPayload(t *testing.T) {
	full := Encode(CLogin, CLoginPayload{Username: "a", Password: "b"}.Marshal())
	status, _, consumed := TryDecodeOne(full[:len(full)-1])
	assert.Equal(t, NeedMore, status)
	assert.Equal(t, 0, consumed)
}

func TestTryDecodeOneBadOnOversizeLength(t *testing.T) {
	buf := make([]byte, HeaderSize)
	buf[0] = Version
	buf[3] = 0xFF
	buf[4] = 0xFF
	buf[5] = 0xFF
	buf[6] = 0xFF
	status, _, _ := TryDecodeOne(buf)
	assert.Equal(t, Bad, status)
}

func TestTryDecodeOneHandlesTwoFramesBackToBack(t *testing.T) {
	first := Encode(CLogout, CLogoutPayload{SessionToken: "tok1"}.Marshal())
	second := Encode(CLogout, CLogoutPayload{SessionToken: "tok2"}.Marshal())
	buf := append(append([]byte{}, first...), second...)

	status, frame, consumed := TryDecodeOne(buf)
	require.Equal(t, Ready, status)
	p1, err := UnmarshalCLogout(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, "tok1", p1.SessionToken)

	status, frame, consumed2 := TryDecodeOne(buf[consumed:])
	require.Equal(t, Ready, status)
	p2, err := UnmarshalCLogout(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, "tok2", p2.SessionToken)
	assert.Equal(t, len(buf), consumed+consumed2)
}

func TestUnmarshalTruncatedPayloadReturnsError(t *testing.T) {
	_, err := UnmarshalCLogin([]byte{0, 3, 'a', 'b'})
	assert.Error(t, err)
}

func TestResultCodeString(t *testing.T) {
	assert.Equal(t, "OK", OK.String())
	assert.Equal(t, "AUTH_FAIL", AuthFail.String())
	assert.Equal(t, "UNKNOWN", ResultCode(200).String())
}

func TestPacketPayloadRoundTrips(t *testing.T) {
	guess := CGuessCharPayload{Token: "t", RoomID: 7, MatchID: 7, Ch: 'A'}
	got, err := UnmarshalCGuessChar(guess.Marshal())
	require.NoError(t, err)
	assert.Equal(t, guess, got)

	word := CGuessWordPayload{Token: "t", RoomID: 7, MatchID: 7, Word: "PROGRAMMING"}
	gotWord, err := UnmarshalCGuessWord(word.Marshal())
	require.NoError(t, err)
	assert.Equal(t, word, gotWord)

	kick := CKickPlayerPayload{Token: "t", RoomID: 3, TargetUsername: "bob"}
	gotKick, err := UnmarshalCKickPlayer(kick.Marshal())
	require.NoError(t, err)
	assert.Equal(t, kick, gotKick)
}
