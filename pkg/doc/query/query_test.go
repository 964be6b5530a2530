/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/credentive/sdcore/pkg/doc/claimpath"
)

const testQueryJSON = `{
  "credentials": [
    {
      "id": "pid",
      "format": "dc+sd-jwt",
      "meta": {"vct_values": ["https://credentials.example.com/identity_credential"]},
      "claims": [
        {"path": ["given_name"]},
        {"path": ["family_name"]},
        {"path": ["address", "street_address"]},
        {"path": ["nationalities", 0]}
      ]
    },
    {
      "id": "mdl",
      "format": "mso_mdoc",
      "meta": {"doctype_value": "org.iso.18013.5.1.mDL"},
      "claims": [
        {"path": ["org.iso.18013.5.1", "family_name"]},
        {"path": ["org.iso.18013.5.1", "portrait"]}
      ]
    }
  ]
}`

func TestParseQuery(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		q, err := ParseQuery([]byte(testQueryJSON))
		require.NoError(t, err)
		require.Len(t, q.Credentials, 2)

		pid := q.Credentials[0]
		require.Equal(t, "pid", pid.ID)
		require.Equal(t, FormatSDJWT, pid.Format)
		require.Equal(t, []string{"https://credentials.example.com/identity_credential"}, pid.Meta.VCTValues)
		require.Len(t, pid.Claims, 4)

		mdl := q.Credentials[1]
		require.Equal(t, FormatMdoc, mdl.Format)
		require.Equal(t, "org.iso.18013.5.1.mDL", mdl.Meta.DoctypeValue)
	})

	t.Run("success - values restriction", func(t *testing.T) {
		q, err := ParseQuery([]byte(`{
		  "credentials": [
		    {"id": "pid", "format": "dc+sd-jwt",
		     "claims": [{"path": ["degree", "type"], "values": ["BachelorDegree", "MasterDegree"]}]}
		  ]}`))
		require.NoError(t, err)
		require.Len(t, q.Credentials[0].Claims[0].Values, 2)
	})

	t.Run("error - not JSON", func(t *testing.T) {
		_, err := ParseQuery([]byte(`not json`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "parse DCQL query")
	})

	t.Run("error - missing credential id", func(t *testing.T) {
		_, err := ParseQuery([]byte(`{"credentials": [{"format": "dc+sd-jwt", "claims": []}]}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "has no id")
	})

	t.Run("error - duplicate credential id", func(t *testing.T) {
		_, err := ParseQuery([]byte(`{"credentials": [
		  {"id": "pid", "format": "dc+sd-jwt", "claims": []},
		  {"id": "pid", "format": "dc+sd-jwt", "claims": []}
		]}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "used more than once")
	})

	t.Run("error - duplicate claim path", func(t *testing.T) {
		_, err := ParseQuery([]byte(`{"credentials": [
		  {"id": "pid", "format": "dc+sd-jwt",
		   "claims": [{"path": ["given_name"]}, {"path": ["given_name"]}]}
		]}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "requested more than once")
	})

	t.Run("error - empty claim path", func(t *testing.T) {
		_, err := ParseQuery([]byte(`{"credentials": [
		  {"id": "pid", "format": "dc+sd-jwt", "claims": [{"path": []}]}
		]}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "empty path")
	})

	t.Run("error - mdoc path arity", func(t *testing.T) {
		_, err := ParseQuery([]byte(`{"credentials": [
		  {"id": "mdl", "format": "mso_mdoc", "claims": [{"path": ["org.iso.18013.5.1"]}]}
		]}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "must have 2 elements")
	})

	t.Run("error - mdoc path element types", func(t *testing.T) {
		_, err := ParseQuery([]byte(`{"credentials": [
		  {"id": "mdl", "format": "mso_mdoc", "claims": [{"path": ["org.iso.18013.5.1", 7]}]}
		]}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "must be strings")
	})

	t.Run("error - array wildcard not addressable", func(t *testing.T) {
		_, err := ParseQuery([]byte(`{"credentials": [
		  {"id": "pid", "format": "dc+sd-jwt", "claims": [{"path": ["nationalities", null]}]}
		]}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "not addressable")
	})
}

func TestDecodeQuery(t *testing.T) {
	t.Run("success - generic map from a request object", func(t *testing.T) {
		var raw map[string]interface{}

		require.NoError(t, json.Unmarshal([]byte(testQueryJSON), &raw))

		q, err := DecodeQuery(raw)
		require.NoError(t, err)
		require.Len(t, q.Credentials, 2)
		require.Equal(t, "pid", q.Credentials[0].ID)
		require.Equal(t, "org.iso.18013.5.1.mDL", q.Credentials[1].Meta.DoctypeValue)
	})

	t.Run("error - invalid structure", func(t *testing.T) {
		_, err := DecodeQuery(map[string]interface{}{"credentials": "not a list"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "decode DCQL query")
	})

	t.Run("error - validation applies", func(t *testing.T) {
		_, err := DecodeQuery(map[string]interface{}{
			"credentials": []interface{}{
				map[string]interface{}{"format": FormatSDJWT},
			},
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "has no id")
	})
}

func TestClaimPaths(t *testing.T) {
	t.Run("success - sd-jwt paths", func(t *testing.T) {
		q, err := ParseQuery([]byte(testQueryJSON))
		require.NoError(t, err)

		paths, err := q.Credentials[0].ClaimPaths()
		require.NoError(t, err)
		require.Equal(t, []string{
			"/address/street_address",
			"/family_name",
			"/given_name",
			"/nationalities/0",
		}, paths.Strings())
	})

	t.Run("success - mdoc paths", func(t *testing.T) {
		q, err := ParseQuery([]byte(testQueryJSON))
		require.NoError(t, err)

		paths, err := q.Credentials[1].ClaimPaths()
		require.NoError(t, err)
		require.Equal(t, 2, paths.Len())
		require.True(t, paths.Contains(claimpath.NewMdocPath(false, "org.iso.18013.5.1", "family_name")))
		require.True(t, paths.Contains(claimpath.NewMdocPath(false, "org.iso.18013.5.1", "portrait")))
	})

	t.Run("success - requirement paths keyed by id", func(t *testing.T) {
		q, err := ParseQuery([]byte(testQueryJSON))
		require.NoError(t, err)

		byID, err := q.RequirementPaths()
		require.NoError(t, err)
		require.Len(t, byID, 2)
		require.Equal(t, 4, byID["pid"].Len())
		require.Equal(t, 2, byID["mdl"].Len())
	})
}
