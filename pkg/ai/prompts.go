package ai

const ExtractSystemPrompt = `You are a precise information extraction system that turns natural-language text into a knowledge graph. You only report what the text states.`

// ExtractPromptText is formatted with the preferred entity types and the
// input text.
const ExtractPromptText = `
# Task Context
You are tasked with extracting a **knowledge graph** of entities and the relationships between them from the provided text.

# Background Data
- **Entity_types:** [%s]

# Detailed Task Description & Rules
## Entity Extraction
1. Identify every entity the text mentions. Prefer the provided entity types; use a more fitting short type in PascalCase only when none of them applies.
2. For each entity, extract:
   - **id:** The canonical name of the entity as written in the text (e.g. "Alice", "Acme Corp"). Use the same id every time the entity is referenced.
   - **type:** The entity type.
   - **description:** A short description of the entity based strictly on the text.

## Relationship Extraction
1. From the identified entities, determine all clear, directed relationships between pairs of entities.
2. For each relationship, extract:
   - **source:** id of the source entity.
   - **target:** id of the target entity.
   - **type:** the relationship type in UPPER_SNAKE_CASE (e.g. "WORKS_AT", "FOUNDED").
   - **description:** how the entities are related, based strictly on the text.
3. Only reference ids that appear in the entities list.

# Example
**Text:**
Alice works at Acme Corp, which was founded by Bob in 1999.

**Output:**
{
  "entities": [
    {"id": "Alice", "type": "Person", "description": "Employee of Acme Corp."},
    {"id": "Acme Corp", "type": "Organization", "description": "Company founded by Bob in 1999."},
    {"id": "Bob", "type": "Person", "description": "Founder of Acme Corp."}
  ],
  "relationships": [
    {"source": "Alice", "target": "Acme Corp", "type": "WORKS_AT", "description": "Alice is employed by Acme Corp."},
    {"source": "Bob", "target": "Acme Corp", "type": "FOUNDED", "description": "Bob founded Acme Corp in 1999."}
  ]
}

# Output Formatting
Return a single valid JSON object with the keys "entities" and "relationships". Use empty arrays when nothing is found.
Do not include any commentary, explanations, or text outside of the JSON.

# Text
%s
`
