// Copyright ©2017 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cram

import (
	"bytes"
	"testing"

	"github.com/arand/hts/cram/encoding/itf8"
)

func hitf8(v int32) []byte {
	b := make([]byte, itf8.Len(v))
	itf8.Encode(b, v)
	return b
}

func externalEncoding(id int32) []byte {
	kindAndLen := append(hitf8(int32(1 /* External */)), hitf8(int32(len(hitf8(id))))...)
	return append(kindAndLen, hitf8(id)...)
}

func buildPreservationMap() []byte {
	var body bytes.Buffer
	body.Write(hitf8(5)) // 5 entries
	body.WriteString("RN")
	body.WriteByte(1)
	body.WriteString("AP")
	body.WriteByte(0)
	body.WriteString("RR")
	body.WriteByte(1)
	body.WriteString("SM")
	body.Write([]byte{0, 0, 0, 0, 0})
	body.WriteString("TD")
	td := []byte{'X', 'Y', 'i', 0}
	body.Write(hitf8(int32(len(td))))
	body.Write(td)

	var out bytes.Buffer
	out.Write(hitf8(int32(body.Len())))
	out.Write(body.Bytes())
	return out.Bytes()
}

func buildDataSeriesMap() []byte {
	var body bytes.Buffer
	body.Write(hitf8(1))
	body.WriteString("BF")
	body.Write(externalEncoding(5))

	var out bytes.Buffer
	out.Write(hitf8(int32(body.Len())))
	out.Write(body.Bytes())
	return out.Bytes()
}

func buildTagEncodingMap() []byte {
	id := tagID('X', 'Y', 'i')
	var body bytes.Buffer
	body.Write(hitf8(1))
	body.Write(hitf8(id))
	body.Write(externalEncoding(9))

	var out bytes.Buffer
	out.Write(hitf8(int32(body.Len())))
	out.Write(body.Bytes())
	return out.Bytes()
}

func TestReadCompressionHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildPreservationMap())
	buf.Write(buildDataSeriesMap())
	buf.Write(buildTagEncodingMap())

	h, err := readCompressionHeader(buf.Bytes())
	if err != nil {
		t.Fatalf("readCompressionHeader: %v", err)
	}
	if !h.Preservation.ReadNamesPreserved {
		t.Error("ReadNamesPreserved = false, want true")
	}
	if h.Preservation.APDelta {
		t.Error("APDelta = true, want false")
	}
	if !h.Preservation.ReferenceRequired {
		t.Error("ReferenceRequired = false, want true")
	}
	if len(h.Preservation.TagDictionary) != 1 || len(h.Preservation.TagDictionary[0]) != 1 {
		t.Fatalf("TagDictionary = %#v", h.Preservation.TagDictionary)
	}
	wantTag := tagID('X', 'Y', 'i')
	if h.Preservation.TagDictionary[0][0] != wantTag {
		t.Errorf("tag dictionary entry = %d, want %d", h.Preservation.TagDictionary[0][0], wantTag)
	}

	bf, ok := h.DataSeries[SeriesBAMFlags]
	if !ok || bf.ExternalID != 5 {
		t.Fatalf("DataSeries[BF] = %#v, %v", bf, ok)
	}

	tagEnc, ok := h.TagEncodings[wantTag]
	if !ok || tagEnc.ExternalID != 9 {
		t.Fatalf("TagEncodings[%d] = %#v, %v", wantTag, tagEnc, ok)
	}
}
