// Package persona loads persona catalogs from YAML.
//
// A catalog file declares personas under a top-level "personas" mapping:
//
//	personas:
//	  PRO:
//	    name: Optimist
//	    role: Argues for the proposal
//	    worldview: {values: [growth, reach]}
//	    style: {tone: upbeat, voice: nova}
//	    examples:
//	      - text: "Let's ship it!"
//	    llm: {provider: openai, model: gpt-4o-mini}
//
// Mapping order is preserved, so templates iterate worldview and style in
// the order they are written.
package persona
