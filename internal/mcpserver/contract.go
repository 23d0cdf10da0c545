package mcpserver

// AuthoringContract describes the entity schema, citation syntax, and patch
// formats that LLM consumers must follow when proposing campaign changes.
const AuthoringContract = `# Lorekeep Authoring Contract

Every proposal goes through human review. Nothing you propose is written
until the game master accepts it.

## Entity types and fields

| Type      | Fields |
|-----------|--------|
| character | name, description*, background*, role, alive |
| location  | name, description*, region |
| quest     | name, description*, objectives*, status |
| item      | name, description*, rarity |
| faction   | name, description*, motto |
| lore      | name, body* |

Fields marked * are rich text: write them in Markdown. Everything else is a
plain value.

## Markdown rules for rich-text fields

1. Headings up to three levels (` + "`#`" + ` to ` + "`###`" + `); deeper headings are clamped.
2. Bold, italic, strikethrough, inline code, links, bullet and numbered
   lists, blockquotes, fenced code blocks, and horizontal rules survive
   round-trips. Tables and raw HTML are flattened to plain text.
3. Cite entities inline with ` + "`[[entityType:entity-uuid:Display Name]]`" + `.
   The UUID must be lowercase. Use the exact ID returned by search_entities
   or list_entities; invented IDs fail review.

## Patch formats (propose_patch)

Each patch targets one field:

` + "```" + `json
{"field": "description", "patchType": "unified_diff", "patch": "@@ -1,2 +1,2 @@\n context\n-old line\n+new line\n"}
` + "```" + `

- ` + "`unified_diff`" + ` applies to the field's Markdown text. Context lines must
  match the current content exactly; a stale diff is rejected whole.
- ` + "`json_patch`" + ` is an RFC 6902 operation array applied to the field's
  document JSON. Use it for structured edits only.
- A proposal with several patches is atomic: if one fails, none apply.

## Workflow

1. search_entities / read_entity to ground yourself in the current canon.
2. propose_create for new entities, propose_patch for small edits to long
   fields, propose_update only when replacing a field wholesale.
3. Use suggested_relationships on propose_create to connect the new entity;
   targets are resolved by name when the proposal is accepted.
4. list_proposals shows what the game master has accepted or rejected.

## Assets

- upload_asset attaches an image or PDF to an entity and returns a
  markdownImage string to paste into a rich-text field.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.
`
