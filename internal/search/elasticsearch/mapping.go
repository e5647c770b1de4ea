package elasticsearch

// DefaultIndexName is the default index for product documents.
const DefaultIndexName = "bakery_products"

// buildIndexMapping returns the JSON mapping for the products index with an
// English analyzer and an edge n-gram autocomplete field on name.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "bakery_english": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "english_stop", "english_stemmer"]
        },
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      },
      "filter": {
        "english_stop":    { "type": "stop", "stopwords": "_english_" },
        "english_stemmer": { "type": "stemmer", "language": "english" }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":                { "type": "keyword" },
      "name":              { "type": "text", "analyzer": "bakery_english", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "autocomplete_search" } } },
      "slug":              { "type": "keyword" },
      "sku":               { "type": "keyword" },
      "description":       { "type": "text", "analyzer": "bakery_english" },
      "short_description": { "type": "text", "analyzer": "bakery_english" },
      "category_id":       { "type": "keyword" },
      "category_name":     { "type": "text", "analyzer": "bakery_english", "fields": { "keyword": { "type": "keyword" } } },
      "category_slug":     { "type": "keyword" },
      "price":             { "type": "long" },
      "compare_at_price":  { "type": "long" },
      "image_url":         { "type": "keyword", "index": false },
      "gradient_from":     { "type": "keyword", "index": false },
      "gradient_to":       { "type": "keyword", "index": false },
      "protein_grams":     { "type": "integer" },
      "is_gluten_free":    { "type": "boolean" },
      "is_dairy_free":     { "type": "boolean" },
      "is_vegan":          { "type": "boolean" },
      "is_keto_friendly":  { "type": "boolean" },
      "is_featured":       { "type": "boolean" },
      "is_bestseller":     { "type": "boolean" },
      "is_active":         { "type": "boolean" },
      "allergens":         { "type": "keyword" },
      "average_rating":    { "type": "float" },
      "review_count":      { "type": "integer" },
      "created_at":        { "type": "date" }
    }
  }
}`
}
