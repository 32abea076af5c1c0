package ur

import (
	"encoding/binary"
	"hash/crc32"
	"strings"
)

// 256 four-letter words; the first and last letters of every word are unique,
// which is what the minimal style transmits.
const wordlist = "ableacidalsoapexaquaarchatomauntawayaxisbackbaldbarnbeltbetabiasbluebodybragbrewbulbbuzzcalmcashcatschefcityclawcodecolacookcostcruxcurlcuspcyandarkdatadaysdelidicedietdoordowndrawdropdrumdulldutyeacheasyechoedgeepicevenexamexiteyesfactfairfernfigsfilmfishfizzflapflewfluxfoxyfreefrogfuelfundgalagamegeargemsgiftgirlglowgoodgraygrimgurugushgyrohalfhanghardhawkheathelphighhillholyhopehornhutsicedideaidleinchinkyintoirisironitemjadejazzjoinjoltjowljudojugsjumpjunkjurykeepkenokeptkeyskickkilnkingkitekiwiknoblamblavalazyleaflegsliarlimplionlistlogoloudloveluaulucklungmainmanymathmazememomenumeowmildmintmissmonknailnavyneednewsnextnoonnotenumbobeyoboeomitonyxopenovalowlspaidpartpeckplaypluspoempoolposepuffpumapurrquadquizraceramprealredorichroadrockroofrubyruinrunsrustsafesagascarsetssilkskewslotsoapsolosongstubsurfswantacotasktaxitenttiedtimetinytoiltombtoystriptunatwinuglyundouniturgeuservastveryvetovialvibeviewvisavoidvowswallwandwarmwaspwavewaxywebswhatwhenwhizwolfworkyankyawnyellyogayurtzapszerozestzinczonezoom"

var minimalIndex = func() map[string]byte {
	m := make(map[string]byte, 256)
	for i := 0; i < 256; i++ {
		w := wordlist[i*4 : i*4+4]
		m[string([]byte{w[0], w[3]})] = byte(i)
	}
	return m
}()

func checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// EncodeBytewords renders data plus its big-endian CRC32 in the minimal
// (two letters per byte) style.
func EncodeBytewords(data []byte) string {
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], checksum(data))

	var b strings.Builder
	b.Grow((len(data) + 4) * 2)
	for _, v := range append(append([]byte{}, data...), sum[:]...) {
		w := wordlist[int(v)*4 : int(v)*4+4]
		b.WriteByte(w[0])
		b.WriteByte(w[3])
	}
	return b.String()
}

// DecodeBytewords reverses EncodeBytewords and verifies the trailing checksum.
func DecodeBytewords(s string) ([]byte, error) {
	s = strings.ToLower(s)
	if len(s)%2 != 0 {
		return nil, ErrInvalidBytewords
	}
	out := make([]byte, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		v, ok := minimalIndex[s[i:i+2]]
		if !ok {
			return nil, ErrInvalidBytewords
		}
		out = append(out, v)
	}
	if len(out) < 4 {
		return nil, ErrInvalidChecksum
	}
	body, sum := out[:len(out)-4], out[len(out)-4:]
	if binary.BigEndian.Uint32(sum) != checksum(body) {
		return nil, ErrInvalidChecksum
	}
	return body, nil
}
