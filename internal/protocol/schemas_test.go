package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	turnSchema := compile("turn.schema.json")
	actSchema := compile("act.schema.json")
	eventSchema := compile("event.schema.json")
	errorSchema := compile("error.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "actor_name":"wanderer-1",
	  "actor_kind":"AUTOMATED"
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "actor_id":"A0001",
	  "actor_name":"wanderer-1",
	  "resume_token":"4a1f2c3d-0000-4000-8000-000000000000",
	  "world_params":{
	    "world_id":"dungeon_1",
	    "max_room_paths":3,
	    "event_memory_cap":100,
	    "decision_timeout_ms":5000,
	    "seed":1337
	  },
	  "room":{
	    "room_id":"R0_0",
	    "name":"The Dusty chamber",
	    "description":"A dusty chamber. Passages lead north and east.",
	    "coord":[0,0],
	    "occupants":[]
	  }
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var turn any
	_ = json.Unmarshal([]byte(`{
	  "type":"TURN",
	  "protocol_version":"1.0",
	  "round":12,
	  "actor_id":"A0001",
	  "room":{
	    "room_id":"R1_0",
	    "name":"The Vaulted hall",
	    "description":"A vaulted hall. Passages lead north and west.",
	    "coord":[1,0],
	    "occupants":["torchbearer"]
	  },
	  "directions":["N","W"],
	  "verbs":["OBSERVE","INTERACT","TALK"],
	  "deadline_ms":5000
	}`), &turn)
	validate(turnSchema, turn)

	var act any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACT",
	  "protocol_version":"1.0",
	  "round":12,
	  "actor_id":"A0001",
	  "verb":"MOVE",
	  "direction":"N"
	}`), &act)
	validate(actSchema, act)

	var event any
	_ = json.Unmarshal([]byte(`{
	  "type":"EVENT",
	  "protocol_version":"1.0",
	  "seq":88,
	  "round":12,
	  "kind":"MOVE_IN",
	  "room_id":"R1_1",
	  "actor_id":"A0001",
	  "actor_name":"wanderer-1",
	  "content":"wanderer-1 entered the room."
	}`), &event)
	validate(eventSchema, event)

	var errMsg any
	_ = json.Unmarshal([]byte(`{
	  "type":"ERROR",
	  "protocol_version":"1.0",
	  "code":"E_BAD_DECISION",
	  "message":"direction S not offered"
	}`), &errMsg)
	validate(errorSchema, errMsg)
}

func TestSchemas_RejectBadAct(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "act.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	cases := map[string]string{
		"move without direction": `{
		  "type":"ACT","protocol_version":"1.0","round":1,"actor_id":"A0001","verb":"MOVE"
		}`,
		"unknown verb": `{
		  "type":"ACT","protocol_version":"1.0","round":1,"actor_id":"A0001","verb":"FLY"
		}`,
		"missing actor id": `{
		  "type":"ACT","protocol_version":"1.0","round":1,"verb":"NOOP"
		}`,
	}
	for name, raw := range cases {
		var v any
		_ = json.Unmarshal([]byte(raw), &v)
		if err := s.Validate(v); err == nil {
			t.Errorf("%s: expected validation failure", name)
		}
	}
}
