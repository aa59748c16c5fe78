// Package prompt renders the system, developer and user prompt templates an
// agent sends to its model client, and loads them from disk.
//
// Templates use a small mustache-like grammar:
//
//	{{persona.name}}
//	{{#each history}}{{speaker}}: {{text}}
//	{{/each}}
//	{{#if persona.style}}Style: {{#each persona.style}}{{key}}={{value}} {{/each}}{{/if}}
//
// Rendering is pure and a Renderer may be shared by any number of agents.
package prompt
