// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"encoding/json"

	"github.com/MKhiriev/go-sync-engine/models"
)

// limitTracker manages a (bytes, records) limit pair, one instance for the
// per-POST limits and one for the whole-batch limits.
type limitTracker struct {
	maxBytes   int
	maxRecords int
	curBytes   int
	curRecords int
}

func newLimitTracker(maxBytes, maxRecords int) *limitTracker {
	return &limitTracker{maxBytes: maxBytes, maxRecords: maxRecords}
}

func (t *limitTracker) clear() {
	t.curBytes = 0
	t.curRecords = 0
}

func (t *limitTracker) canAdd(recordSize int) bool {
	return t.curRecords < t.maxRecords && t.curBytes+recordSize <= t.maxBytes
}

// canNeverAdd reports a record that would not fit even into an empty POST.
func (t *limitTracker) canNeverAdd(recordSize int) bool {
	return recordSize >= t.maxBytes
}

func (t *limitTracker) added(recordSize int) {
	t.curRecords++
	t.curBytes += recordSize
}

// encodedRecord is one outgoing BSO pre-serialized for batch planning.
type encodedRecord struct {
	id   string
	body json.RawMessage
}

// uploadPlan is the outcome of splitting an outgoing set under the server's
// limits: batches of POST bodies to issue in order, plus records that can
// never be uploaded because a single record exceeds the payload cap.
type uploadPlan struct {
	// batches holds one server batch per element; the POSTs of a batch
	// share one batch token and the last of them carries commit=true.
	batches [][][]encodedRecord
	// oversize maps record id to the rejection reason.
	oversize map[string]string
}

// planUpload serializes records and splits them into POST-sized chunks under
// the per-POST limits, closing the whole batch and opening a new one when the
// server's total-batch limits would overflow. Oversize records are set aside
// rather than aborting the plan.
func planUpload(records []models.BSO, limits models.InfoConfiguration) (uploadPlan, error) {
	plan := uploadPlan{oversize: map[string]string{}}
	post := newLimitTracker(minInt(limits.MaxPostBytes, limits.MaxRequestBytes), limits.MaxPostRecords)
	total := newLimitTracker(limits.MaxTotalBytes, limits.MaxTotalRecords)

	var (
		curPost  []encodedRecord
		curBatch [][]encodedRecord
	)
	closePost := func() {
		if len(curPost) > 0 {
			curBatch = append(curBatch, curPost)
			curPost = nil
		}
		post.clear()
	}
	closeBatch := func() {
		closePost()
		if len(curBatch) > 0 {
			plan.batches = append(plan.batches, curBatch)
			curBatch = nil
		}
		total.clear()
	}

	for _, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return uploadPlan{}, err
		}
		size := len(body)

		if len(rec.Payload) > limits.MaxRecordPayloadBytes || post.canNeverAdd(size) {
			plan.oversize[rec.ID] = "record exceeds server payload limit"
			continue
		}

		if !total.canAdd(size) {
			closeBatch()
		} else if !post.canAdd(size) {
			closePost()
		}
		curPost = append(curPost, encodedRecord{id: rec.ID, body: body})
		post.added(size)
		total.added(size)
	}
	closeBatch()
	return plan, nil
}

// encodePost renders one POST body as a JSON array of BSOs.
func encodePost(records []encodedRecord) ([]byte, error) {
	bodies := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		bodies = append(bodies, r.body)
	}
	return json.Marshal(bodies)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
