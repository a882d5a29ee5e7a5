package services_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-services-client/entities"
	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/services"
	"github.com/stretchr/testify/require"
)

func TestEscapeNonASCII(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"subject":"café"}`, `{"subject":"caf\u00e9"}`},
		{"plain ascii", "plain ascii"},
		{"", ""},
		{"日本", `\u65e5\u672c`},
		{"a😀b", `a\ud83d\ude00b`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, services.EscapeNonASCII(tt.in))
		})
	}
}

func TestClient_SaveCommentEscapesPayload(t *testing.T) {
	ctx := context.Background()
	f := newFake().
		RespondAlways(services.OpSystemConnect, anonymousConnect).
		Respond(services.OpCommentSave, `{"#error":false,"#data":12}`).
		Respond(services.OpCommentSave, `{"#error":false,"#data":true}`)
	c := newClient(t, f)

	cid, err := c.SaveComment(ctx, &entities.Comment{NID: 4, Subject: "Café", Comment: "très bien"})
	require.NoError(t, err)
	require.Equal(t, 12, cid)

	payload := f.CallsFor(services.OpCommentSave)[0].Params["comment"].(string)
	require.Contains(t, payload, `"subject":"Caf\u00e9"`)
	require.Contains(t, payload, `"comment":"tr\u00e8s bien"`)
	require.NotContains(t, payload, `"cid"`)
	require.NotContains(t, payload, `"uid"`)
	for _, b := range []byte(payload) {
		require.Less(t, b, byte(0x80))
	}

	t.Run("boolean reply maps to 1", func(t *testing.T) {
		cid, err := c.SaveComment(ctx, &entities.Comment{NID: 4, Subject: "ok"})
		require.NoError(t, err)
		require.Equal(t, 1, cid)
	})
}

func TestClient_SaveNode(t *testing.T) {
	ctx := context.Background()
	f := newFake().
		RespondAlways(services.OpSystemConnect, `{"#error":false,"#data":{"sessid":"S1"}}`).
		Respond(services.OpNodeSave, `{"#error":false,"#data":"31"}`).
		Respond(services.OpNodeSave, `{"#error":true,"#message":"Title field is required."}`)
	c := newClient(t, f)

	node := &entities.Node{
		Type:  "story",
		Title: "Ünïcode",
		Fields: map[string]entities.Field{
			"field_rating": {Values: []map[string]any{{"value": "5"}}},
		},
	}
	nid, err := c.SaveNode(ctx, node)
	require.NoError(t, err)
	require.Equal(t, 31, nid)

	call := f.CallsFor(services.OpNodeSave)[0]
	payload := call.Params["node"].(string)
	require.Equal(t, "S1", call.Params[services.ParamSessionID])
	require.Contains(t, payload, `"title":"\u00dcn\u00efcode"`)
	require.Contains(t, payload, `"field_rating":{"0":{"value":"5"}}`)
	require.NotContains(t, payload, `"nid"`)

	_, err = c.SaveNode(ctx, &entities.Node{Type: "story"})
	var saveErr *services.SaveError
	require.ErrorAs(t, err, &saveErr)
	require.Equal(t, services.OpNodeSave, saveErr.Op)
	require.ErrorIs(t, err, svcerrors.ErrRemote)
}

func TestClient_GetNodeViewPagination(t *testing.T) {
	tests := []struct {
		name          string
		args          string
		offset, limit int
		wantPaging    bool
	}{
		{"both positive", "", 10, 5, true},
		{"zero offset", "", 0, 5, false},
		{"zero limit", "", 10, 0, false},
		{"negative", "", -1, -1, false},
		{"with args", "12/all", 1, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake().
				RespondAlways(services.OpSystemConnect, anonymousConnect).
				Respond(services.OpViewsGet, `{"#error":false,"#data":[{"nid":"1","title":"a"},{"nid":"2","title":"b"}]}`)
			c := newClient(t, f)

			nodes, err := c.GetNodeView(context.Background(), "frontpage", tt.args, tt.offset, tt.limit)
			require.NoError(t, err)
			require.Len(t, nodes, 2)

			params := f.CallsFor(services.OpViewsGet)[0].Params
			require.Equal(t, "frontpage", params["view_name"])
			if tt.wantPaging {
				require.Equal(t, tt.offset, params["offset"])
				require.Equal(t, tt.limit, params["limit"])
			} else {
				require.NotContains(t, params, "offset")
				require.NotContains(t, params, "limit")
			}
			if tt.args == "" {
				require.NotContains(t, params, "args")
			} else {
				require.Equal(t, tt.args, params["args"])
			}
		})
	}
}

func TestClient_GetComments(t *testing.T) {
	ctx := context.Background()
	f := newFake().
		RespondAlways(services.OpSystemConnect, anonymousConnect).
		Respond(services.OpCommentLoadNode, `{"#error":false,"#data":{"1":{"cid":"9","nid":"4","subject":"second"},"0":{"cid":"8","nid":"4","subject":"first"}}}`).
		Respond(services.OpCommentLoadNode, `{"#error":false,"#data":[]}`)
	c := newClient(t, f)

	comments, err := c.GetComments(ctx, 4, 0, 10)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "first", comments[0].Subject)
	require.EqualValues(t, 9, comments[1].CID)

	params := f.CallsFor(services.OpCommentLoadNode)[0].Params
	require.Equal(t, 4, params["nid"])
	require.NotContains(t, params, "start")
	require.NotContains(t, params, "count")

	comments, err = c.GetComments(ctx, 4, 20, 10)
	require.NoError(t, err)
	require.Empty(t, comments)
	params = f.CallsFor(services.OpCommentLoadNode)[1].Params
	require.Equal(t, 20, params["start"])
	require.Equal(t, 10, params["count"])
}

func TestClient_GetComment(t *testing.T) {
	f := newFake().
		RespondAlways(services.OpSystemConnect, anonymousConnect).
		Respond(services.OpCommentLoad, `{"#error":false,"#data":{"cid":"8","nid":"4","subject":"hi","timestamp":"1287070033"}}`).
		Respond(services.OpCommentLoad, `{"#error":false,"#data":"not a comment"}`)
	c := newClient(t, f)

	comment, err := c.GetComment(context.Background(), 8)
	require.NoError(t, err)
	require.Equal(t, "hi", comment.Subject)
	require.EqualValues(t, 1287070033, comment.Timestamp)
	require.Equal(t, 8, f.CallsFor(services.OpCommentLoad)[0].Params["cid"])

	_, err = c.GetComment(context.Background(), 8)
	var fetchErr *services.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.ErrorIs(t, err, svcerrors.ErrSerialization)
}

func TestClient_Terms(t *testing.T) {
	ctx := context.Background()
	terms := `{"#error":false,"#data":[{"tid":"1","vid":"1","name":"News"},{"tid":"2","vid":"1","name":"Sport"}]}`
	f := newFake().
		RespondAlways(services.OpSystemConnect, anonymousConnect).
		Respond(services.OpViewsGet, terms).
		Respond(services.OpTaxonomyDictionary, terms)
	c := newClient(t, f)

	viewTerms, err := c.GetTermView(ctx, "categories")
	require.NoError(t, err)
	require.Len(t, viewTerms, 2)
	require.Equal(t, "categories", f.CallsFor(services.OpViewsGet)[0].Params["view_name"])

	list, err := c.GetCategoryList(ctx)
	require.NoError(t, err)
	require.Equal(t, "Sport", list[1].Name)
	require.Equal(t, 1, f.CallsFor(services.OpTaxonomyDictionary)[0].Params["vid"])
}

func TestClient_RegisterNewUser(t *testing.T) {
	f := newFake().
		RespondAlways(services.OpSystemConnect, anonymousConnect).
		Respond(services.OpUserSave, `{"#error":false,"#data":"42"}`)
	c := newClient(t, f)

	uid, err := c.RegisterNewUser(context.Background(), "zoë", "pw", "zoe@example.com")
	require.NoError(t, err)
	require.Equal(t, 42, uid)

	account := f.CallsFor(services.OpUserSave)[0].Params["account"].(string)
	require.JSONEq(t, `{"name":"zoë","pass":"pw","mail":"zoe@example.com"}`, account)
	require.Contains(t, account, `zo\u00eb`)
}

func TestClient_GetUser(t *testing.T) {
	ctx := context.Background()
	f := newFake().
		RespondAlways(services.OpSystemConnect, anonymousConnect).
		Respond(services.OpUserLogin, aliceLogin).
		Respond(services.OpUserGet, `{"#error":false,"#data":{"uid":"9","name":"bob"}}`).
		Respond(services.OpUserGet, `{"#error":false,"#data":{"sessid":"S2","user":{"uid":"7","name":"alice","mail":"alice@example.com"}}}`)
	c := newClient(t, f)

	_, err := c.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	bob, err := c.GetUser(ctx, 9)
	require.NoError(t, err)
	require.Equal(t, "bob", bob.Name)
	require.Equal(t, "alice", c.CurrentUser().Name)

	alice, err := c.GetUser(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", c.CurrentUser().Mail)
	require.Same(t, alice, c.CurrentUser())
	require.Equal(t, "S2", c.SessionID())
}

func TestClient_GetUserAdoptsSessionUser(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous session becomes authenticated", func(t *testing.T) {
		f := newFake().
			RespondAlways(services.OpSystemConnect, `{"#error":false,"#data":{"sessid":"S0","user":{"uid":0}}}`).
			Respond(services.OpUserGet, `{"#error":false,"#data":{"sessid":"S9","user":{"uid":7,"name":"alice"}}}`)
		c := newClient(t, f)
		require.NoError(t, c.Connect(ctx))
		require.Equal(t, services.StateConnected, c.State())

		user, err := c.GetUser(ctx, 7)
		require.NoError(t, err)
		require.Equal(t, "S9", c.SessionID())
		require.Same(t, user, c.CurrentUser())
		require.EqualValues(t, 7, c.CurrentUser().UID)
		require.Equal(t, services.StateAuthenticated, c.State())
	})

	t.Run("anonymous user in the reply is not a login", func(t *testing.T) {
		f := newFake().
			RespondAlways(services.OpSystemConnect, `{"#error":false,"#data":{"sessid":"S0","user":{"uid":0}}}`).
			Respond(services.OpUserGet, `{"#error":false,"#data":{"sessid":"S0","user":{"uid":0,"name":""}}}`)
		c := newClient(t, f)

		_, err := c.GetUser(ctx, 0)
		require.NoError(t, err)
		require.Nil(t, c.CurrentUser())
		require.Equal(t, services.StateConnected, c.State())
	})

	t.Run("bare user of another account leaves the current user", func(t *testing.T) {
		f := newFake().
			RespondAlways(services.OpSystemConnect, anonymousConnect).
			Respond(services.OpUserGet, `{"#error":false,"#data":{"uid":"9","name":"bob"}}`)
		c := newClient(t, f)

		_, err := c.GetUser(ctx, 9)
		require.NoError(t, err)
		require.Nil(t, c.CurrentUser())
		require.Equal(t, services.StateConnected, c.State())
	})
}

func TestClient_FileDirectoryAndToken(t *testing.T) {
	ctx := context.Background()
	f := newFake().
		RespondAlways(services.OpSystemConnect, `{"#error":false,"#data":{"sessid":"S1"}}`).
		Respond(services.OpFileGetDirectoryPath, `{"#error":false,"#data":"sites/default/files"}`).
		Respond(services.OpFileGetUploadToken, `{"#error":false,"#data":"tok123"}`).
		Respond(services.OpFileGetUploadToken, `{"#error":false,"#data":{"#error":true,"#message":"Access denied"}}`)
	c := newClient(t, f)

	dir, err := c.GetFileDirectoryPath(ctx)
	require.NoError(t, err)
	require.Equal(t, "sites/default/files", dir)
	require.Equal(t, "S1", f.CallsFor(services.OpFileGetDirectoryPath)[0].Params[services.ParamSessionID])

	token, err := c.GetFileUploadToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok123", token)

	_, err = c.GetFileUploadToken(ctx)
	require.ErrorIs(t, err, svcerrors.ErrRemote)
}
