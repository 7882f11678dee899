package elasticsearch

// DefaultIndexName is used when no index name is configured.
const DefaultIndexName = "shatika_products"

// indexMapping analyzes names and descriptions with English stemming plus
// an edge n-gram subfield for prefix matches such as "kalam" -> "Kalamkari".
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase", "asciifolding"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":          { "type": "keyword" },
      "name":        { "type": "text", "analyzer": "english", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "autocomplete_search" } } },
      "slug":        { "type": "keyword" },
      "description": { "type": "text", "analyzer": "english" },
      "category_id": { "type": "keyword" },
      "material_id": { "type": "keyword" },
      "art_id":      { "type": "keyword" },
      "price":       { "type": "long" },
      "currency":    { "type": "keyword" },
      "colors":      { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "is_active":   { "type": "boolean" },
      "created_at":  { "type": "date" }
    }
  }
}`
