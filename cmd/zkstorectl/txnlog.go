package main

import (
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/latticeio/zkstore/acl"
	"github.com/latticeio/zkstore/txn"
	"github.com/latticeio/zkstore/zkerrors"
)

// jsonEntry is one element of the replay harness's transaction log (a
// JSON array of such objects): a flat
// JSON object carrying both the header fields and whichever body fields
// its Type needs. This is the harness's own debugging format, not a
// reproduction of any on-wire protocol — spec.md explicitly scopes
// serialization framing for individual records out of the core.
type jsonEntry struct {
	ClientID int64  `json:"clientId"`
	Cxid     int32  `json:"cxid"`
	Zxid     int64  `json:"zxid"`
	Time     int64  `json:"time"`
	Type     string `json:"type"`

	Path           string      `json:"path,omitempty"`
	Data           string      `json:"data,omitempty"` // base64
	ACL            []jsonACL   `json:"acl,omitempty"`
	Ephemeral      bool        `json:"ephemeral,omitempty"`
	ParentCVersion *int32      `json:"parentCVersion,omitempty"`
	TTLMillis      int64       `json:"ttlMillis,omitempty"`
	Version        int32       `json:"version,omitempty"`
	Err            string      `json:"err,omitempty"`
	Ops            []jsonEntry `json:"ops,omitempty"`
}

type jsonACL struct {
	Perms  uint32 `json:"perms"`
	Scheme string `json:"scheme"`
	ID     string `json:"id"`
}

var opCodeByName = map[string]txn.OpCode{
	"create":          txn.OpCreate,
	"create2":         txn.OpCreate2,
	"createTTL":       txn.OpCreateTTL,
	"createContainer": txn.OpCreateContainer,
	"delete":          txn.OpDelete,
	"deleteContainer": txn.OpDeleteContainer,
	"setData":         txn.OpSetData,
	"reconfig":        txn.OpReconfig,
	"setACL":          txn.OpSetACL,
	"closeSession":    txn.OpCloseSession,
	"error":           txn.OpError,
	"check":           txn.OpCheck,
	"multi":           txn.OpMulti,
}

var errCodeByName = map[string]zkerrors.Code{
	"OK":                      zkerrors.OK,
	"NoNode":                  zkerrors.NoNode,
	"NodeExists":              zkerrors.NodeExists,
	"RuntimeInconsistency":    zkerrors.RuntimeInconsistency,
	"BadVersion":              zkerrors.BadVersion,
	"BadArguments":            zkerrors.BadArguments,
	"NotEmpty":                zkerrors.NotEmpty,
	"NoChildrenForEphemeral":  zkerrors.NoChildrenForEphemeral,
	"EphemeralOnLocalSession": zkerrors.EphemeralOnLocalSession,
	"InvalidACL":              zkerrors.InvalidACL,
	"Unimplemented":           zkerrors.Unimplemented,
}

// decodeLog reads a JSON array of jsonEntry from r and converts each to a
// (txn.TxnHeader, body) pair ready for Processor.ProcessTxn.
func decodeLog(r io.Reader) ([]txn.TxnHeader, []interface{}, error) {
	var entries []jsonEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, nil, errors.Wrap(err, "decode transaction log")
	}

	headers := make([]txn.TxnHeader, len(entries))
	bodies := make([]interface{}, len(entries))
	for i, e := range entries {
		opCode, ok := opCodeByName[e.Type]
		if !ok {
			return nil, nil, errors.Errorf("unknown op type %q at entry %d", e.Type, i)
		}
		body, err := e.toBody(opCode)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "entry %d", i)
		}
		headers[i] = txn.TxnHeader{ClientID: e.ClientID, Cxid: e.Cxid, Zxid: e.Zxid, Time: e.Time, Type: opCode}
		bodies[i] = body
	}
	return headers, bodies, nil
}

func (e jsonEntry) toBody(opCode txn.OpCode) (interface{}, error) {
	switch opCode {
	case txn.OpCreate, txn.OpCreate2, txn.OpCreateTTL, txn.OpCreateContainer:
		data, err := decodeData(e.Data)
		if err != nil {
			return nil, err
		}
		return txn.CreateTxn{
			Path:           e.Path,
			Data:           data,
			ACL:            toACLList(e.ACL),
			Ephemeral:      e.Ephemeral,
			ParentCVersion: parentCVersionOrDefault(e.ParentCVersion),
			TTLMillis:      e.TTLMillis,
		}, nil
	case txn.OpDelete, txn.OpDeleteContainer:
		return txn.DeleteTxn{Path: e.Path}, nil
	case txn.OpSetData, txn.OpReconfig:
		data, err := decodeData(e.Data)
		if err != nil {
			return nil, err
		}
		return txn.SetDataTxn{Path: e.Path, Data: data, Version: e.Version}, nil
	case txn.OpSetACL:
		return txn.SetACLTxn{Path: e.Path, ACL: toACLList(e.ACL), Version: e.Version}, nil
	case txn.OpCloseSession:
		return nil, nil
	case txn.OpError:
		code, ok := errCodeByName[e.Err]
		if !ok {
			return nil, errors.Errorf("unknown error code %q", e.Err)
		}
		return txn.ErrorTxn{Err: code}, nil
	case txn.OpCheck:
		return txn.CheckTxn{Path: e.Path, Version: e.Version}, nil
	case txn.OpMulti:
		ops := make([]txn.MultiOp, len(e.Ops))
		for i, sub := range e.Ops {
			subOpCode, ok := opCodeByName[sub.Type]
			if !ok {
				return nil, errors.Errorf("unknown op type %q in multi sub-record %d", sub.Type, i)
			}
			body, err := sub.toBody(subOpCode)
			if err != nil {
				return nil, errors.Wrapf(err, "multi sub-record %d", i)
			}
			ops[i] = txn.MultiOp{Type: subOpCode, Body: body}
		}
		return txn.MultiTxn{Ops: ops}, nil
	default:
		return nil, errors.Errorf("unsupported op code %d", opCode)
	}
}

// parentCVersionOrDefault maps an omitted parentCVersion field to -1
// ("derive from parent.stat.cversion + 1", per spec.md §4.4.1), and an
// explicit value (including 0) straight through.
func parentCVersionOrDefault(v *int32) int32 {
	if v == nil {
		return -1
	}
	return *v
}

func decodeData(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "decode base64 data")
	}
	return b, nil
}

func toACLList(in []jsonACL) acl.List {
	if len(in) == 0 {
		return nil
	}
	out := make(acl.List, len(in))
	for i, e := range in {
		out[i] = acl.ACL{Perms: e.Perms, Scheme: e.Scheme, ID: e.ID}
	}
	return out
}
